// Package config loads the presentation and timing constants from an
// optional YAML file, then applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/foodlens/internal/conversation"
	"github.com/hammamikhairi/foodlens/internal/domain"
)

// DefaultPath is read when no -config flag is given. It may be absent.
const DefaultPath = "foodlens.yaml"

// Config is the complete application configuration.
type Config struct {
	HTTP     HTTPConfig      `yaml:"http"`
	Capture  CaptureConfig   `yaml:"capture"`
	Detect   DetectConfig    `yaml:"detect"`
	Enrich   EnrichConfig    `yaml:"enrich"`
	Profile  ProfileConfig   `yaml:"profile"`
	Layout   LayoutConfig    `yaml:"layout"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
	Camera   CameraConfig    `yaml:"camera"`
	Speech   SpeechConfig    `yaml:"speech"`
	Commands []CommandConfig `yaml:"commands"`
}

// HTTPConfig holds the listen address.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// CaptureConfig holds the detection cadence and watchdog bounds.
type CaptureConfig struct {
	Interval       time.Duration `yaml:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	WatchdogCheck  time.Duration `yaml:"watchdog_check"`
	WarnAfter      time.Duration `yaml:"warn_after"`
	ReleaseAfter   time.Duration `yaml:"release_after"`
}

// DetectConfig points at the detection service. ProximityMatching pairs
// repeated names with the nearest previous instance across cycles.
type DetectConfig struct {
	URL               string `yaml:"url"`
	ProximityMatching bool   `yaml:"proximity_matching"`
}

// EnrichConfig holds the chat-completions settings. The key is only
// read from the environment.
type EnrichConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Key         string        `yaml:"-"`
	AuthStyle   string        `yaml:"auth_style"` // api-key | bearer
	Model       string        `yaml:"model"`
	RecipeCount int           `yaml:"recipe_count"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ProfileConfig selects the user-profile backend.
type ProfileConfig struct {
	Backend string        `yaml:"backend"` // memory | rest | supabase
	URL     string        `yaml:"url"`
	Key     string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// LayoutConfig holds the ring presentation constants.
type LayoutConfig struct {
	Mode             string    `yaml:"mode"` // live | legacy
	RingMargin       float64   `yaml:"ring_margin"`
	InfoOffset       float64   `yaml:"info_offset"`
	LabelStartOffset float64   `yaml:"label_start_offset"`
	AvoidOverlap     bool      `yaml:"avoid_overlap"`
	NutritionAngles  []float64 `yaml:"nutrition_angles"`
	Fields           []string  `yaml:"fields"`
}

// MQTTConfig enables the overlay bus when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// CameraConfig enables the local webcam.
type CameraConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Device   int           `yaml:"device"`
	Interval time.Duration `yaml:"interval"`
}

// SpeechConfig enables the microphone and earcons.
type SpeechConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Earcons      bool   `yaml:"earcons"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

// CommandConfig adds a spoken template for an intent, e.g.
// {template: "Pon mi nombre *", intent: set_name}.
type CommandConfig struct {
	Template string `yaml:"template"`
	Intent   string `yaml:"intent"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Capture: CaptureConfig{
			Interval:       time.Second,
			RequestTimeout: 5 * time.Second,
			WatchdogCheck:  5 * time.Second,
			WarnAfter:      15 * time.Second,
			ReleaseAfter:   45 * time.Second,
		},
		Detect: DetectConfig{URL: "http://127.0.0.1:8000/api/detect/"},
		Enrich: EnrichConfig{
			AuthStyle:   "api-key",
			Model:       "gpt-3.5-turbo",
			RecipeCount: 3,
			Timeout:     30 * time.Second,
		},
		Profile: ProfileConfig{Backend: "memory", Timeout: 10 * time.Second},
		Layout: LayoutConfig{
			Mode:             "live",
			RingMargin:       20,
			InfoOffset:       80,
			LabelStartOffset: 50,
			AvoidOverlap:     true,
			NutritionAngles:  []float64{-45, 0, 45},
			Fields:           append([]string(nil), domain.DefaultNutritionFields...),
		},
		MQTT:   MQTTConfig{ClientID: "foodlens", TopicPrefix: "foodlens"},
		Camera: CameraConfig{Interval: 100 * time.Millisecond},
		Speech: SpeechConfig{
			Earcons:      true,
			WhisperBin:   "whisper-cli",
			WhisperModel: "models/ggml-base.bin",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error: the
// defaults are returned as they are. The result is not validated until
// Validate is called, so env overrides can be applied first.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables. getenv is
// usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.HTTP.Addr, "HTTP_ADDRESS")
	set(&c.Detect.URL, "DETECT_URL")
	set(&c.Enrich.Endpoint, "GPT_CHAT_ENDPOINT")
	set(&c.Enrich.Key, "GPT_CHAT_KEY")
	set(&c.Enrich.AuthStyle, "GPT_AUTH_STYLE")
	set(&c.Enrich.Model, "GPT_MODEL")
	set(&c.Profile.Backend, "PROFILE_BACKEND")
	set(&c.Profile.URL, "PROFILE_URL")
	set(&c.Profile.Key, "SUPABASE_KEY")
	set(&c.MQTT.Broker, "MQTT_BROKER")
	set(&c.Speech.WhisperBin, "WHISPER_BIN")
	set(&c.Speech.WhisperModel, "WHISPER_MODEL")

	if c.Profile.Backend == "supabase" && c.Profile.URL == "" {
		set(&c.Profile.URL, "SUPABASE_URL")
	}
}

// Validate checks ranges and names and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, a ...any) {
		errs = append(errs, fmt.Errorf(format, a...))
	}

	if iv := c.Capture.Interval; iv < 500*time.Millisecond || iv > time.Second {
		add("capture.interval must be between 500ms and 1s, got %s", iv)
	}
	if c.Capture.RequestTimeout <= 0 {
		add("capture.request_timeout must be > 0")
	}
	if c.Capture.ReleaseAfter > 0 && c.Capture.WarnAfter > c.Capture.ReleaseAfter {
		add("capture.warn_after must not exceed release_after")
	}
	if c.Detect.URL == "" {
		add("detect.url is required")
	}
	if c.Enrich.RecipeCount < 1 {
		add("enrich.recipe_count must be >= 1")
	}
	if c.Enrich.Timeout <= 0 {
		add("enrich.timeout must be > 0")
	}

	switch c.Profile.Backend {
	case "memory":
	case "rest", "supabase":
		if c.Profile.URL == "" {
			add("profile.url is required for the %s backend", c.Profile.Backend)
		}
	default:
		add("profile.backend must be memory, rest or supabase, got %q", c.Profile.Backend)
	}

	if c.Layout.Mode != "live" && c.Layout.Mode != "legacy" {
		add("layout.mode must be live or legacy, got %q", c.Layout.Mode)
	}
	if c.Layout.RingMargin < 0 || c.Layout.InfoOffset < 0 {
		add("layout offsets must be >= 0")
	}
	if o := c.Layout.LabelStartOffset; o < 0 || o > 100 {
		add("layout.label_start_offset must be a percentage, got %v", o)
	}
	if len(c.Layout.Fields) == 0 {
		add("layout.fields must not be empty")
	}
	if c.MQTT.QoS > 2 {
		add("mqtt.qos must be 0, 1 or 2")
	}

	for i, cmd := range c.Commands {
		if strings.TrimSpace(cmd.Template) == "" {
			add("commands[%d]: template is required", i)
		}
		if domain.IntentFromString(cmd.Intent) == domain.IntentUnknown {
			add("commands[%d]: unknown intent %q", i, cmd.Intent)
		}
	}

	return errors.Join(errs...)
}

// GrammarCommands returns the configured extra commands followed by the
// defaults. Extras come first so they win over a default phrasing.
func (c *Config) GrammarCommands() []conversation.Command {
	out := make([]conversation.Command, 0, len(c.Commands)+16)
	for _, cmd := range c.Commands {
		out = append(out, conversation.Command{
			Template: cmd.Template,
			Intent:   domain.IntentFromString(cmd.Intent),
		})
	}
	return append(out, conversation.DefaultCommands()...)
}
