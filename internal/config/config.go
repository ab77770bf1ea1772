// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Simulation() SimulationConfig
	Replay() ReplayConfig
	Mixpanel() MixpanelConfig
	Archive() ArchiveConfig
	Journal() JournalConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserHumanoidEnabled(bool)

	// Simulation Setters
	SetSimulationMaxActions(int)
	SetSimulationDelays(minSeconds, maxSeconds float64)
	SetSimulationActionWeights(map[string]float64)

	// Mixpanel Setters
	SetMixpanelCredentials(username, secret, projectID string)
}

// Config holds the entire application configuration.
// Fields are exported so viper can populate them; callers should go through the
// Interface getters.
type Config struct {
	LoggerCfg     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	BrowserCfg    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	SimulationCfg SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	ReplayCfg     ReplayConfig     `mapstructure:"replay" yaml:"replay"`
	MixpanelCfg   MixpanelConfig   `mapstructure:"mixpanel" yaml:"mixpanel"`
	ArchiveCfg    ArchiveConfig    `mapstructure:"archive" yaml:"archive"`
	JournalCfg    JournalConfig    `mapstructure:"journal" yaml:"journal"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig         { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig       { return c.BrowserCfg }
func (c *Config) Simulation() SimulationConfig { return c.SimulationCfg }
func (c *Config) Replay() ReplayConfig         { return c.ReplayCfg }
func (c *Config) Mixpanel() MixpanelConfig     { return c.MixpanelCfg }
func (c *Config) Archive() ArchiveConfig       { return c.ArchiveCfg }
func (c *Config) Journal() JournalConfig       { return c.JournalCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)        { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserHumanoidEnabled(b bool) { c.BrowserCfg.Humanoid.Enabled = b }

func (c *Config) SetSimulationMaxActions(n int) { c.SimulationCfg.MaxActions = n }
func (c *Config) SetSimulationDelays(minSeconds, maxSeconds float64) {
	c.SimulationCfg.MinDelaySeconds = minSeconds
	c.SimulationCfg.MaxDelaySeconds = maxSeconds
}
func (c *Config) SetSimulationActionWeights(w map[string]float64) {
	c.SimulationCfg.ActionWeights = w
}

func (c *Config) SetMixpanelCredentials(username, secret, projectID string) {
	c.MixpanelCfg.Username = username
	c.MixpanelCfg.Secret = secret
	c.MixpanelCfg.ProjectID = projectID
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// ViewportConfig describes the emulated device. A zero width or height leaves
// the browser's window size untouched.
type ViewportConfig struct {
	Width      int64   `mapstructure:"width" yaml:"width"`
	Height     int64   `mapstructure:"height" yaml:"height"`
	PixelRatio float64 `mapstructure:"pixel_ratio" yaml:"pixel_ratio"`
	Mobile     bool    `mapstructure:"mobile" yaml:"mobile"`
}

// BrowserConfig holds settings for the automated Chromium instance.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent         string         `mapstructure:"user_agent" yaml:"user_agent"`
	Locale            string         `mapstructure:"locale" yaml:"locale"`
	Timezone          string         `mapstructure:"timezone" yaml:"timezone"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout     time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration  `mapstructure:"action_timeout" yaml:"action_timeout"`
	PostLoadWait      time.Duration  `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Humanoid          HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// SimulationConfig drives the weighted random action loop.
type SimulationConfig struct {
	MaxActions          int                `mapstructure:"max_actions" yaml:"max_actions"`
	MinDelaySeconds     float64            `mapstructure:"min_delay_seconds" yaml:"min_delay_seconds"`
	MaxDelaySeconds     float64            `mapstructure:"max_delay_seconds" yaml:"max_delay_seconds"`
	ActionWeights       map[string]float64 `mapstructure:"action_weights" yaml:"action_weights"`
	MaxDuration         time.Duration      `mapstructure:"max_duration" yaml:"max_duration"`
	PauseMinSeconds     float64            `mapstructure:"pause_min_seconds" yaml:"pause_min_seconds"`
	PauseMaxSeconds     float64            `mapstructure:"pause_max_seconds" yaml:"pause_max_seconds"`
	ScrollMinPixels     int                `mapstructure:"scroll_min_pixels" yaml:"scroll_min_pixels"`
	ScrollMaxPixels     int                `mapstructure:"scroll_max_pixels" yaml:"scroll_max_pixels"`
	ScrollUpProbability float64            `mapstructure:"scroll_up_probability" yaml:"scroll_up_probability"`
	ClickSelector       string             `mapstructure:"click_selector" yaml:"click_selector"`
	NavigateScope       string             `mapstructure:"navigate_scope" yaml:"navigate_scope"`
}

// SchemaConfig names the event property keys used to rebuild an interaction
// from an analytics event.
type SchemaConfig struct {
	ReproductiveKey  string `mapstructure:"reproductive_key" yaml:"reproductive_key"`
	DimensionKey     string `mapstructure:"dimension_key" yaml:"dimension_key"`
	ScrollTopKey     string `mapstructure:"scroll_top_key" yaml:"scroll_top_key"`
	MousePositionKey string `mapstructure:"mouse_position_key" yaml:"mouse_position_key"`
	TimeKey          string `mapstructure:"time_key" yaml:"time_key"`
	PageKey          string `mapstructure:"page_key" yaml:"page_key"`
	QueryKey         string `mapstructure:"query_key" yaml:"query_key"`
}

// DefaultMobileUserAgent is a Nexus 5 Chrome user agent.
const DefaultMobileUserAgent = "Mozilla/5.0 (Linux; Android 4.2.1; en-us; Nexus 5 Build/JOP40D) AppleWebKit/535.19 (KHTML, like Gecko) Chrome/18.0.1025.166 Mobile Safari/535.19"

// ReplayConfig configures how recorded events are played back.
type ReplayConfig struct {
	// StaticDelay replaces the recorded inter-event gaps when positive.
	StaticDelay     time.Duration `mapstructure:"static_delay" yaml:"static_delay"`
	FallbackDelay   time.Duration `mapstructure:"fallback_delay" yaml:"fallback_delay"`
	MaxGap          time.Duration `mapstructure:"max_gap" yaml:"max_gap"`
	MobileUserAgent string        `mapstructure:"mobile_user_agent" yaml:"mobile_user_agent"`
	PixelRatio      float64       `mapstructure:"pixel_ratio" yaml:"pixel_ratio"`
	Schema          SchemaConfig  `mapstructure:"schema" yaml:"schema"`
}

// RetryConfig is the caller-owned retry policy for transient export failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay" yaml:"delay"`
}

// MixpanelConfig holds the export API settings and service account credentials.
type MixpanelConfig struct {
	ProjectID       string        `mapstructure:"project_id" yaml:"project_id"`
	Username        string        `mapstructure:"username" yaml:"username"`
	Secret          string        `mapstructure:"secret" yaml:"-"`
	CredentialsFile string        `mapstructure:"credentials_file" yaml:"credentials_file"`
	EnvFile         string        `mapstructure:"env_file" yaml:"env_file"`
	DataLocation    string        `mapstructure:"data_location" yaml:"data_location"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	Retry           RetryConfig   `mapstructure:"retry" yaml:"retry"`
}

// ArchiveConfig controls where fetched events are written.
type ArchiveConfig struct {
	Path     string `mapstructure:"path" yaml:"path"`
	S3Region string `mapstructure:"s3_region" yaml:"s3_region"`
}

// JournalConfig controls the SQLite action journal. An empty path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultActionWeights returns the weight table used when none is configured.
// It is not registered with viper because viper merges nested maps key by key,
// which would make it impossible to configure a subset of the actions.
func DefaultActionWeights() map[string]float64 {
	return map[string]float64{
		"scroll":   0.45,
		"pause":    0.25,
		"click":    0.20,
		"navigate": 0.10,
	}
}

func (c *Config) applyDerivedDefaults() {
	if len(c.SimulationCfg.ActionWeights) == 0 {
		c.SimulationCfg.ActionWeights = DefaultActionWeights()
	}
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.applyDerivedDefaults()
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "wanderer")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "")
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 768)
	v.SetDefault("browser.viewport.pixel_ratio", 1.0)
	v.SetDefault("browser.viewport.mobile", false)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.navigation_timeout", "45s")
	v.SetDefault("browser.action_timeout", "15s")
	v.SetDefault("browser.post_load_wait", "500ms")
	setHumanoidDefaults(v)

	// -- Simulation --
	v.SetDefault("simulation.max_actions", 25)
	v.SetDefault("simulation.min_delay_seconds", 1.0)
	v.SetDefault("simulation.max_delay_seconds", 4.0)
	v.SetDefault("simulation.max_duration", "0s")
	v.SetDefault("simulation.pause_min_seconds", 1.5)
	v.SetDefault("simulation.pause_max_seconds", 6.0)
	v.SetDefault("simulation.scroll_min_pixels", 120)
	v.SetDefault("simulation.scroll_max_pixels", 900)
	v.SetDefault("simulation.scroll_up_probability", 0.2)
	v.SetDefault("simulation.click_selector", "a[href], button, [role=button], input[type=submit]")
	v.SetDefault("simulation.navigate_scope", "same-site")

	// -- Replay --
	v.SetDefault("replay.static_delay", "0s")
	v.SetDefault("replay.fallback_delay", "3s")
	v.SetDefault("replay.max_gap", "2m")
	v.SetDefault("replay.mobile_user_agent", DefaultMobileUserAgent)
	v.SetDefault("replay.pixel_ratio", 3.0)
	v.SetDefault("replay.schema.reproductive_key", "reproductive")
	v.SetDefault("replay.schema.dimension_key", "dimension")
	v.SetDefault("replay.schema.scroll_top_key", "scrollTop")
	v.SetDefault("replay.schema.mouse_position_key", "mousePosition")
	v.SetDefault("replay.schema.time_key", "time")
	v.SetDefault("replay.schema.page_key", "location")
	v.SetDefault("replay.schema.query_key", "searchArgs")

	// -- Mixpanel --
	v.SetDefault("mixpanel.project_id", "")
	v.SetDefault("mixpanel.username", "")
	v.SetDefault("mixpanel.secret", "")
	v.SetDefault("mixpanel.credentials_file", "")
	v.SetDefault("mixpanel.env_file", ".env")
	v.SetDefault("mixpanel.data_location", "data-eu")
	v.SetDefault("mixpanel.base_url", "")
	v.SetDefault("mixpanel.timeout", "2m")
	v.SetDefault("mixpanel.rate_limit", 3.0)
	v.SetDefault("mixpanel.rate_burst", 1)
	v.SetDefault("mixpanel.retry.max_attempts", 1)
	v.SetDefault("mixpanel.retry.delay", "0s")

	// -- Archive --
	v.SetDefault("archive.path", "")
	v.SetDefault("archive.s3_region", "")

	// -- Journal --
	v.SetDefault("journal.path", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials are bound explicitly so they never have to live in a config file.
	v.BindEnv("mixpanel.username", "WANDERER_MIXPANEL_USERNAME")
	v.BindEnv("mixpanel.secret", "WANDERER_MIXPANEL_SECRET")
	v.BindEnv("mixpanel.project_id", "WANDERER_MIXPANEL_PROJECT_ID")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.SimulationCfg.Validate(); err != nil {
		return fmt.Errorf("simulation configuration invalid: %w", err)
	}
	if err := c.MixpanelCfg.Validate(); err != nil {
		return fmt.Errorf("mixpanel configuration invalid: %w", err)
	}
	if c.BrowserCfg.Humanoid.ClickHoldMaxMs < c.BrowserCfg.Humanoid.ClickHoldMinMs {
		return fmt.Errorf("browser.humanoid.click_hold_max_ms must be >= click_hold_min_ms")
	}
	h := c.BrowserCfg.Humanoid
	if h.GaussianStrength < 0 || h.PinkNoiseAmplitude < 0 || h.IdleJitterPixels < 0 {
		return fmt.Errorf("browser.humanoid noise and jitter amplitudes must be >= 0")
	}
	return nil
}

// knownActionKinds mirrors the simulator's closed set of action kinds.
var knownActionKinds = map[string]bool{
	"scroll":   true,
	"pause":    true,
	"click":    true,
	"navigate": true,
}

// Validate checks the SimulationConfig settings.
func (s *SimulationConfig) Validate() error {
	if s.MaxActions <= 0 {
		return fmt.Errorf("max_actions must be greater than 0")
	}
	if s.MinDelaySeconds < 0 {
		return fmt.Errorf("min_delay_seconds must be >= 0")
	}
	if s.MaxDelaySeconds < s.MinDelaySeconds {
		return fmt.Errorf("max_delay_seconds must be >= min_delay_seconds")
	}
	total := 0.0
	for kind, w := range s.ActionWeights {
		if !knownActionKinds[strings.ToLower(kind)] {
			return fmt.Errorf("unknown action kind %q in action_weights", kind)
		}
		if w < 0 {
			return fmt.Errorf("action weight for %q must be non-negative", kind)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("action_weights must assign a positive weight to at least one action")
	}
	if s.PauseMinSeconds < 0 || s.PauseMaxSeconds < s.PauseMinSeconds {
		return fmt.Errorf("pause range must satisfy 0 <= pause_min_seconds <= pause_max_seconds")
	}
	if s.ScrollMinPixels < 0 || s.ScrollMaxPixels < s.ScrollMinPixels {
		return fmt.Errorf("scroll range must satisfy 0 <= scroll_min_pixels <= scroll_max_pixels")
	}
	if s.ScrollUpProbability < 0 || s.ScrollUpProbability > 1 {
		return fmt.Errorf("scroll_up_probability must be between 0.0 and 1.0")
	}
	switch s.NavigateScope {
	case "same-site", "same-host", "any":
	default:
		return fmt.Errorf("navigate_scope must be one of same-site, same-host, any")
	}
	if s.MaxDuration < 0 {
		return fmt.Errorf("max_duration must not be negative")
	}
	return nil
}

// Validate checks the MixpanelConfig settings. Credentials are not required here
// because only the fetch and replay commands need them.
func (m *MixpanelConfig) Validate() error {
	switch m.DataLocation {
	case "data", "data-eu", "data-in":
	default:
		return fmt.Errorf("data_location must be one of data, data-eu, data-in")
	}
	if m.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if m.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}
	if m.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}
