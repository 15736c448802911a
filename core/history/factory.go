package history

import (
	"fmt"

	"github.com/driveinsight/fleet/core/factory"
)

var storeRegistry = factory.NewRegistry[Store]()

type fileConf struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func init() {
	_ = storeRegistry.Register("nop", func(map[string]any) (Store, error) { return NopStore{}, nil })
	_ = storeRegistry.Register("jsonl", func(conf map[string]any) (Store, error) {
		var c fileConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "ticks.jsonl"
		}
		return NewJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = storeRegistry.Register("sqlite", func(conf map[string]any) (Store, error) {
		var c fileConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "ticks.db"
		}
		return NewSQLiteStore(c.Path)
	})
}

// Open builds the store named by cfg.Type. An empty type disables history.
func Open(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		return NopStore{}, nil
	}
	s, err := storeRegistry.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	return s, nil
}

// Backends lists the registered store types.
func Backends() []string { return storeRegistry.Types() }
