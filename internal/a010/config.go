package a010

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig holds operator-overridable auto-range and temporal filter
// parameters. Fields are pointers so that a partial JSON document only
// overrides the values it names; everything else keeps the constructor's
// defaults, matching jhcTofCam's public tuning fields.
type TuningConfig struct {
	// Auto-range params.
	Saturation   *int `json:"saturation,omitempty"`    // sat: max % of ROI pixels saturated
	Percentile   *int `json:"percentile,omitempty"`    // pct: histogram percentile
	RangeSpan    *int `json:"range_span,omitempty"`    // ihi: desired index span at pct
	ROIOriginX   *int `json:"roi_origin_x,omitempty"`  // cx0
	ROIOriginY   *int `json:"roi_origin_y,omitempty"`  // cy0
	ROIWidth     *int `json:"roi_width,omitempty"`     // cw
	ROIHeight    *int `json:"roi_height,omitempty"`    // ch
	InitialUnit  *int `json:"initial_unit,omitempty"`  // unit requested at Start

	// Temporal filter params.
	LearningWeight *float64 `json:"learning_weight,omitempty"` // f0
	NoiseFloor     *float64 `json:"noise_floor,omitempty"`     // nv
	FlickerLimit   *int     `json:"flicker_limit,omitempty"`   // vlim
}

// EmptyTuningConfig returns a TuningConfig with all fields unset. Use
// LoadTuningConfig to populate one from a JSON file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig reads a TuningConfig from a JSON file. Fields the file
// omits keep their DefaultConfig() values, so partial overrides are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
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

// Validate checks that any set fields are in range.
func (c *TuningConfig) Validate() error {
	if c.Saturation != nil && (*c.Saturation < 0 || *c.Saturation > 100) {
		return fmt.Errorf("saturation must be 0..100, got %d", *c.Saturation)
	}
	if c.Percentile != nil && (*c.Percentile < 1 || *c.Percentile > 99) {
		return fmt.Errorf("percentile must be 1..99, got %d", *c.Percentile)
	}
	if c.InitialUnit != nil && (*c.InitialUnit < 1 || *c.InitialUnit > 9) {
		return fmt.Errorf("initial_unit must be 1..9, got %d", *c.InitialUnit)
	}
	if c.LearningWeight != nil && (*c.LearningWeight <= 0 || *c.LearningWeight >= 1) {
		return fmt.Errorf("learning_weight must be in (0,1), got %f", *c.LearningWeight)
	}
	if c.FlickerLimit != nil && (*c.FlickerLimit < 0 || *c.FlickerLimit > 255) {
		return fmt.Errorf("flicker_limit must be 0..255, got %d", *c.FlickerLimit)
	}
	return nil
}

// Resolve merges c over DefaultConfig(), returning a fully-populated Config.
// A nil receiver yields the defaults untouched.
func (c *TuningConfig) Resolve() Config {
	cfg := DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.Saturation != nil {
		cfg.AutoRange.Saturation = *c.Saturation
	}
	if c.Percentile != nil {
		cfg.AutoRange.Percentile = *c.Percentile
	}
	if c.RangeSpan != nil {
		cfg.AutoRange.RangeSpan = *c.RangeSpan
	}
	if c.ROIOriginX != nil {
		cfg.AutoRange.ROIOriginX = *c.ROIOriginX
	}
	if c.ROIOriginY != nil {
		cfg.AutoRange.ROIOriginY = *c.ROIOriginY
	}
	if c.ROIWidth != nil {
		cfg.AutoRange.ROIWidth = *c.ROIWidth
	}
	if c.ROIHeight != nil {
		cfg.AutoRange.ROIHeight = *c.ROIHeight
	}
	if c.InitialUnit != nil {
		cfg.InitialUnit = *c.InitialUnit
	}
	if c.LearningWeight != nil {
		cfg.Temporal.LearningWeight = *c.LearningWeight
	}
	if c.NoiseFloor != nil {
		cfg.Temporal.NoiseFloor = *c.NoiseFloor
	}
	if c.FlickerLimit != nil {
		cfg.Temporal.FlickerLimit = *c.FlickerLimit
	}
	return cfg
}

// AutoRangeConfig parameterises the histogram-driven unit selection in
// autorange.go.
type AutoRangeConfig struct {
	Saturation int // sat: % of ROI pixels at 255 that forces a coarser unit
	Percentile int // pct: histogram percentile used as the ranging target
	RangeSpan  int // ihi: desired index value at the percentile
	ROIOriginX int // cx0
	ROIOriginY int // cy0
	ROIWidth   int // cw
	ROIHeight  int // ch
}

// TemporalConfig parameterises the per-pixel filter in temporal.go.
type TemporalConfig struct {
	LearningWeight float64 // f0, in (0,1)
	NoiseFloor     float64 // nv, expected measurement variance
	FlickerLimit   int     // vlim, variance above which a pixel is masked
}

// Config bundles the full set of tunable driver parameters.
type Config struct {
	InitialUnit int // unit requested by Start, in mm/step
	AutoRange   AutoRangeConfig
	Temporal    TemporalConfig
}

// DefaultConfig returns the parameter set jhcTofCam ships with.
func DefaultConfig() Config {
	return Config{
		InitialUnit: 2,
		AutoRange: AutoRangeConfig{
			Saturation: 80,
			Percentile: 50,
			RangeSpan:  150,
			ROIOriginX: 25,
			ROIOriginY: 25,
			ROIWidth:   50,
			ROIHeight:  50,
		},
		Temporal: TemporalConfig{
			LearningWeight: 0.1,
			NoiseFloor:     64.0,
			FlickerLimit:   32,
		},
	}
}
