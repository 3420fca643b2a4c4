package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pkgerrors "ipdash/pkg/errors"
)

// Config modes for the config panel.
const (
	ConfigModeRaw  = "raw"  // editable raw text
	ConfigModeJSON = "json" // read-only pretty JSON
)

// Config holds the resolved client configuration.
type Config struct {
	ServerURL        string   `yaml:"server_url"`
	PollInterval     Duration `yaml:"poll_interval"`
	RefreshDelay     Duration `yaml:"refresh_delay"`
	RequestTimeout   Duration `yaml:"request_timeout"`
	ConfigMode       string   `yaml:"config_mode"`
	RefreshAfterSave bool     `yaml:"refresh_after_save"`
	LogLevel         string   `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:      "http://127.0.0.1:6788",
		PollInterval:   Duration(10 * time.Second),
		RefreshDelay:   Duration(3 * time.Second),
		RequestTimeout: 0,
		ConfigMode:     ConfigModeRaw,
		LogLevel:       "info",
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error
// unless required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Apply sets one setting by key using its string form.
func (c *Config) Apply(key, value string) error {
	value = strings.TrimSpace(value)
	invalid := func(err error) error {
		return &pkgerrors.SettingError{Key: key, Value: value, Err: err}
	}

	switch key {
	case KeyServerURL:
		c.ServerURL = value
	case KeyPollInterval, KeyRefreshDelay, KeyRequestTimeout:
		d, err := ParseDuration(value)
		if err != nil {
			return invalid(err)
		}
		switch key {
		case KeyPollInterval:
			c.PollInterval = Duration(d)
		case KeyRefreshDelay:
			c.RefreshDelay = Duration(d)
		default:
			c.RequestTimeout = Duration(d)
		}
	case KeyConfigMode:
		if value != ConfigModeRaw && value != ConfigModeJSON {
			return invalid(pkgerrors.ErrSettingInvalid)
		}
		c.ConfigMode = value
	case KeyRefreshAfterSave:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid(pkgerrors.ErrSettingInvalid)
		}
		c.RefreshAfterSave = b
	case KeyLogLevel:
		switch value {
		case "debug", "info", "warn", "error":
			c.LogLevel = value
		default:
			return invalid(pkgerrors.ErrSettingInvalid)
		}
	default:
		return &pkgerrors.SettingError{Key: key, Err: pkgerrors.ErrSettingNotFound}
	}
	return nil
}

// ApplyAll applies every known key in settings. Unknown keys are ignored so
// older databases keep working.
func (c *Config) ApplyAll(settings map[string]string) error {
	for _, def := range Defs {
		v, ok := settings[def.Key]
		if !ok {
			continue
		}
		if err := c.Apply(def.Key, v); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the string form of a setting.
func (c Config) Get(key string) (string, error) {
	switch key {
	case KeyServerURL:
		return c.ServerURL, nil
	case KeyPollInterval:
		return c.PollInterval.String(), nil
	case KeyRefreshDelay:
		return c.RefreshDelay.String(), nil
	case KeyRequestTimeout:
		return c.RequestTimeout.String(), nil
	case KeyConfigMode:
		return c.ConfigMode, nil
	case KeyRefreshAfterSave:
		return strconv.FormatBool(c.RefreshAfterSave), nil
	case KeyLogLevel:
		return c.LogLevel, nil
	}
	return "", &pkgerrors.SettingError{Key: key, Err: pkgerrors.ErrSettingNotFound}
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return pkgerrors.ErrServerURLEmpty
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &pkgerrors.SettingError{Key: KeyServerURL, Value: c.ServerURL, Err: pkgerrors.ErrSettingInvalid}
	}
	if c.PollInterval <= 0 {
		return &pkgerrors.SettingError{Key: KeyPollInterval, Value: c.PollInterval.String(), Err: pkgerrors.ErrSettingInvalid}
	}
	if c.RefreshDelay < 0 {
		return &pkgerrors.SettingError{Key: KeyRefreshDelay, Value: c.RefreshDelay.String(), Err: pkgerrors.ErrSettingInvalid}
	}
	if c.RequestTimeout < 0 {
		return &pkgerrors.SettingError{Key: KeyRequestTimeout, Value: c.RequestTimeout.String(), Err: pkgerrors.ErrSettingInvalid}
	}
	// The YAML layer bypasses Apply, so choices are checked here too.
	for key, value := range map[string]string{KeyConfigMode: c.ConfigMode, KeyLogLevel: c.LogLevel} {
		if !validChoice(key, value) {
			return &pkgerrors.SettingError{Key: key, Value: value, Err: pkgerrors.ErrSettingInvalid}
		}
	}
	return nil
}

func validChoice(key, value string) bool {
	def, ok := Def(key)
	if !ok {
		return false
	}
	for _, c := range def.Choices {
		if c == value {
			return true
		}
	}
	return false
}

// Duration is a time.Duration that reads "10s" or a bare number of seconds.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// ParseDuration accepts Go duration strings and bare integer seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
