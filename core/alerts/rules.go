package alerts

import (
	"fmt"

	"github.com/driveinsight/fleet/core/model"
)

// Rule raises an alert of Type when Match holds for a vehicle.
type Rule struct {
	Type     model.AlertType
	Severity model.Severity
	Match    func(v model.Vehicle) bool
	Message  func(v model.Vehicle) string
}

// Config holds the rule thresholds.
type Config struct {
	Disabled   bool    `json:"disabled"`
	SpeedLimit float64 `json:"speed_limit"`
	LowFuelPct int     `json:"low_fuel_pct"`
}

func (c *Config) SetDefaults() {
	if c.SpeedLimit <= 0 {
		c.SpeedLimit = 100
	}
	if c.LowFuelPct <= 0 {
		c.LowFuelPct = 20
	}
}

func (c Config) Validate() error {
	if c.LowFuelPct > 100 {
		return fmt.Errorf("low_fuel_pct must be within 0..100")
	}
	return nil
}

// DefaultRules returns the speeding and low fuel rules.
func DefaultRules(cfg Config) []Rule {
	cfg.SetDefaults()
	return []Rule{
		{
			Type:     model.AlertSpeeding,
			Severity: model.SeverityHigh,
			Match:    func(v model.Vehicle) bool { return v.Speed > cfg.SpeedLimit },
			Message: func(v model.Vehicle) string {
				return fmt.Sprintf("%s - %.0f km/h exceeds %.0f km/h", v.ID, v.Speed, cfg.SpeedLimit)
			},
		},
		{
			Type:     model.AlertLowFuel,
			Severity: model.SeverityHigh,
			Match:    func(v model.Vehicle) bool { return v.Fuel < cfg.LowFuelPct },
			Message:  func(v model.Vehicle) string { return fmt.Sprintf("%s - %d%% remaining", v.ID, v.Fuel) },
		},
	}
}
