package config

import (
	"fmt"
	"time"
)

// SimulationConfig drives the position updater and the initial fleet.
type SimulationConfig struct {
	// Paused disables the periodic updater; the store still serves writes.
	Paused            bool    `json:"paused"`
	IntervalSeconds   int     `json:"interval_seconds"`
	PositionJitterDeg float64 `json:"position_jitter_deg"`
	SpeedJitter       float64 `json:"speed_jitter"`
	// Seed fixes the jitter source; 0 picks a random seed.
	Seed uint64 `json:"seed"`
	// FleetSize > 0 replaces the demo vehicles with a generated fleet.
	FleetSize int `json:"fleet_size"`
	// FixtureFile loads vehicles from a yaml file instead of the demo set.
	FixtureFile string `json:"fixture_file"`
}

func (c *SimulationConfig) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 10
	}
	if c.PositionJitterDeg <= 0 {
		c.PositionJitterDeg = 0.001
	}
	if c.SpeedJitter <= 0 {
		c.SpeedJitter = 5
	}
}

func (c SimulationConfig) Validate() error {
	if c.FleetSize < 0 {
		return fmt.Errorf("fleet_size must not be negative")
	}
	if c.FleetSize > 0 && c.FixtureFile != "" {
		return fmt.Errorf("fleet_size and fixture_file are mutually exclusive")
	}
	if c.PositionJitterDeg > 1 {
		return fmt.Errorf("position_jitter_deg %v is larger than one degree", c.PositionJitterDeg)
	}
	return nil
}

func (c SimulationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
