// File: internal/config/humanoid_config.go
// This file defines the HumanoidConfig struct, which contains the tunable
// parameters for the low level input simulation: cursor trajectories, click
// hold times, wheel scrolling cadence and idle jitter during pauses.
package config

import "github.com/spf13/viper"

// HumanoidConfig is the viper facing form of humanoid.Config.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Fitts's Law parameters, in milliseconds.
	FittsA float64 `mapstructure:"fitts_a" yaml:"fitts_a"`
	FittsB float64 `mapstructure:"fitts_b" yaml:"fitts_b"`

	// Noise
	GaussianStrength   float64 `mapstructure:"gaussian_strength" yaml:"gaussian_strength"`
	PinkNoiseAmplitude float64 `mapstructure:"pink_noise_amplitude" yaml:"pink_noise_amplitude"`

	// Clicking
	ClickHoldMinMs int `mapstructure:"click_hold_min_ms" yaml:"click_hold_min_ms"`
	ClickHoldMaxMs int `mapstructure:"click_hold_max_ms" yaml:"click_hold_max_ms"`

	// Scrolling
	ScrollDetentPixels float64 `mapstructure:"scroll_detent_pixels" yaml:"scroll_detent_pixels"`
	ScrollStepMinMs    int     `mapstructure:"scroll_step_min_ms" yaml:"scroll_step_min_ms"`
	ScrollStepMaxMs    int     `mapstructure:"scroll_step_max_ms" yaml:"scroll_step_max_ms"`

	// Idling
	IdleJitterPixels float64 `mapstructure:"idle_jitter_pixels" yaml:"idle_jitter_pixels"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.fitts_a", 100.0)
	v.SetDefault("browser.humanoid.fitts_b", 120.0)
	v.SetDefault("browser.humanoid.gaussian_strength", 0.5)
	v.SetDefault("browser.humanoid.pink_noise_amplitude", 2.5)
	v.SetDefault("browser.humanoid.click_hold_min_ms", 50)
	v.SetDefault("browser.humanoid.click_hold_max_ms", 120)
	v.SetDefault("browser.humanoid.scroll_detent_pixels", 100.0)
	v.SetDefault("browser.humanoid.scroll_step_min_ms", 30)
	v.SetDefault("browser.humanoid.scroll_step_max_ms", 90)
	v.SetDefault("browser.humanoid.idle_jitter_pixels", 5.0)
}
