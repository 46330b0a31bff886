package model

// PluginSettingType controls how a plugin setting is edited and validated.
type PluginSettingType string

const (
	SettingToggle PluginSettingType = "toggle"
	SettingSelect PluginSettingType = "select"
	SettingRange  PluginSettingType = "range"
)

// PluginSetting is one tunable of a plugin. Value is the default.
type PluginSetting struct {
	ID      string            `json:"id"`
	Label   string            `json:"label"`
	Type    PluginSettingType `json:"type"`
	Value   any               `json:"value"`
	Options []string          `json:"options,omitempty"`
	Min     *float64          `json:"min,omitempty"`
	Max     *float64          `json:"max,omitempty"`
	Step    *float64          `json:"step,omitempty"`
}

// Plugin describes an extra detector the remote model may run.
type Plugin struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category,omitempty"`
	Description    string          `json:"description,omitempty"`
	Endpoint       string          `json:"endpoint,omitempty"`
	DefaultEnabled bool            `json:"defaultEnabled"`
	Settings       []PluginSetting `json:"settings,omitempty"`
}

// PluginState is what the user changed about a plugin. A nil Enabled falls
// back to DefaultEnabled; a missing setting falls back to its default value.
type PluginState struct {
	Enabled  *bool          `json:"enabled,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// PluginView is a plugin merged with its stored state.
type PluginView struct {
	Plugin
	Enabled     bool           `json:"enabled"`
	SettingsMap map[string]any `json:"settingsMap"`
	Custom      bool           `json:"custom"`
}

// ActivePlugin is the part of an enabled plugin forwarded to the model.
type ActivePlugin struct {
	ID       string         `json:"id"`
	Endpoint string         `json:"endpoint,omitempty"`
	Settings map[string]any `json:"settings"`
}
