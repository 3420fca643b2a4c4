package config

// Setting keys.
const (
	KeyServerURL        = "server_url"
	KeyPollInterval     = "poll_interval"
	KeyRefreshDelay     = "refresh_delay"
	KeyRequestTimeout   = "request_timeout"
	KeyConfigMode       = "config_mode"
	KeyRefreshAfterSave = "refresh_after_save"
	KeyLogLevel         = "log_level"
)

// SettingKind distinguishes free-text settings from choice-based settings.
type SettingKind int

const (
	SettingText   SettingKind = iota // Free-text input (urls, durations).
	SettingChoice                    // Cycle through predefined options.
)

// SettingDef defines a setting's display metadata.
type SettingDef struct {
	Key         string
	Label       string
	Description string
	Kind        SettingKind
	Choices     []string // Only for SettingChoice.
}

// Defs lists every persisted setting in display order.
var Defs = []SettingDef{
	{Key: KeyServerURL, Label: "Server", Description: "Optimizer API base URL"},
	{Key: KeyPollInterval, Label: "Poll Interval", Description: "How often all panels refresh"},
	{Key: KeyRefreshDelay, Label: "Refresh Delay", Description: "Wait after run test before refreshing"},
	{Key: KeyRequestTimeout, Label: "Timeout", Description: "Per-request timeout (0s = none)"},
	{Key: KeyConfigMode, Label: "Config Mode", Description: "Raw editable text or pretty JSON", Kind: SettingChoice, Choices: []string{ConfigModeRaw, ConfigModeJSON}},
	{Key: KeyRefreshAfterSave, Label: "Refresh On Save", Description: "Refresh all panels after saving config", Kind: SettingChoice, Choices: []string{"false", "true"}},
	{Key: KeyLogLevel, Label: "Log Level", Description: "Log file verbosity", Kind: SettingChoice, Choices: []string{"debug", "info", "warn", "error"}},
}

// Def returns the definition for key.
func Def(key string) (SettingDef, bool) {
	for _, d := range Defs {
		if d.Key == key {
			return d, true
		}
	}
	return SettingDef{}, false
}

// Keys returns all setting keys in display order.
func Keys() []string {
	keys := make([]string, len(Defs))
	for i, d := range Defs {
		keys[i] = d.Key
	}
	return keys
}
