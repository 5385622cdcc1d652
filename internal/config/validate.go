package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQuality() error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"quality.reject_below", c.Quality.RejectBelow},
		{"quality.good_above", c.Quality.GoodAbove},
		{"quality.excellent_above", c.Quality.ExcellentAbove},
	}
	for _, t := range thresholds {
		if t.value < 0 || t.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", t.name)
		}
	}
	if !(c.Quality.RejectBelow < c.Quality.GoodAbove && c.Quality.GoodAbove < c.Quality.ExcellentAbove) {
		return errors.New("quality thresholds must satisfy reject_below < good_above < excellent_above")
	}
	if c.Quality.LengthWeight < 0 || c.Quality.LexicalWeight < 0 || c.Quality.StructuralWeight < 0 {
		return errors.New("quality signal weights must not be negative")
	}
	if c.Quality.LengthWeight+c.Quality.LexicalWeight+c.Quality.StructuralWeight <= 0 {
		return errors.New("quality signal weights must sum to a positive value")
	}
	if c.Quality.SaturationLength <= c.Quality.MinLength {
		return errors.New("quality.saturation_length must exceed quality.min_length")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.Acceptance {
	case "acceptable", "good", "excellent":
	default:
		return fmt.Errorf("pipeline.acceptance must be one of acceptable, good, excellent (got %q)", c.Pipeline.Acceptance)
	}
	if c.Pipeline.HeartbeatTimeout <= c.Pipeline.HeartbeatInterval {
		return errors.New("pipeline.heartbeat_timeout must exceed pipeline.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
