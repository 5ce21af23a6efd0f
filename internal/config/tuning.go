// Package config loads the runtime tuning file and JSON plan documents.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig holds the runtime tuning knobs. Every field is a pointer so
// a partial JSON file only overrides what it names; the Get* methods supply
// defaults for the rest.
type TuningConfig struct {
	// Swing re-timing params
	TouchdownBlend            *float64 `json:"touchdown_blend,omitempty"`
	LateExtension             *float64 `json:"late_extension,omitempty"`
	KinematicContactThreshold *float64 `json:"kinematic_contact_threshold,omitempty"`

	// Control loop params
	TickRateHz *float64 `json:"tick_rate_hz,omitempty"`

	// Transport params
	SendErrorLogInterval *string `json:"send_error_log_interval,omitempty"` // duration string like "5s"
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Omitted fields
// fall back to defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readConfigFile validates and reads a JSON config file path.
func readConfigFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.TouchdownBlend != nil && *c.TouchdownBlend <= 0 {
		return fmt.Errorf("touchdown_blend must be positive, got %f", *c.TouchdownBlend)
	}
	if c.LateExtension != nil && *c.LateExtension <= 0 {
		return fmt.Errorf("late_extension must be positive, got %f", *c.LateExtension)
	}
	if c.KinematicContactThreshold != nil && *c.KinematicContactThreshold < 0 {
		return fmt.Errorf("kinematic_contact_threshold must be non-negative, got %f", *c.KinematicContactThreshold)
	}
	if c.TickRateHz != nil && *c.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %f", *c.TickRateHz)
	}
	if c.SendErrorLogInterval != nil && *c.SendErrorLogInterval != "" {
		if _, err := time.ParseDuration(*c.SendErrorLogInterval); err != nil {
			return fmt.Errorf("invalid send_error_log_interval '%s': %w", *c.SendErrorLogInterval, err)
		}
	}
	return nil
}

// GetTouchdownBlend returns the early-touchdown blend duration in seconds.
func (c *TuningConfig) GetTouchdownBlend() float64 {
	if c.TouchdownBlend != nil {
		return *c.TouchdownBlend
	}
	return 0.1
}

// GetLateExtension returns the late-touchdown extension in seconds.
func (c *TuningConfig) GetLateExtension() float64 {
	if c.LateExtension != nil {
		return *c.LateExtension
	}
	return 0.05
}

// GetKinematicContactThreshold returns the contact height margin in meters.
func (c *TuningConfig) GetKinematicContactThreshold() float64 {
	if c.KinematicContactThreshold != nil {
		return *c.KinematicContactThreshold
	}
	return 0.025
}

// GetTickRateHz returns the control loop rate.
func (c *TuningConfig) GetTickRateHz() float64 {
	if c.TickRateHz != nil {
		return *c.TickRateHz
	}
	return 500
}

// GetSendErrorLogInterval returns the transport error log interval.
func (c *TuningConfig) GetSendErrorLogInterval() time.Duration {
	if c.SendErrorLogInterval != nil && *c.SendErrorLogInterval != "" {
		if d, err := time.ParseDuration(*c.SendErrorLogInterval); err == nil {
			return d
		}
	}
	return 5 * time.Second
}
