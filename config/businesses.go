package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"review-monitor/models"
)

// Seed is a YAML file listing businesses to monitor:
//
//	businesses:
//	  - name: Cafe Central
//	    target_url: https://www.google.com/maps/place/...
//	settings:
//	  check_interval_hours: 2
type Seed struct {
	models.Directory `yaml:",inline"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read seed: %w", err)
	}

	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("config: parse seed %s: %w", path, err)
	}
	for i, biz := range s.Businesses {
		if biz.Name == "" {
			return nil, fmt.Errorf("config: seed %s: business #%d has no name", path, i+1)
		}
	}
	if s.Settings.CheckIntervalHours < 0 {
		return nil, fmt.Errorf("config: seed %s: check_interval_hours must not be negative", path)
	}
	return &s, nil
}
