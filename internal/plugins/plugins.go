// Package plugins holds the detector plugin catalog: the built-in registry,
// user-imported definitions and the merge with stored per-plugin state.
package plugins

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/raysh454/phishlens/internal/model"
)

//go:embed registry.json
var registryJSON []byte

var (
	ErrUnknownPlugin  = errors.New("unknown plugin")
	ErrUnknownSetting = errors.New("unknown plugin setting")
	ErrInvalidValue   = errors.New("invalid plugin setting value")
	ErrInvalidImport  = errors.New("invalid plugin import")
)

// Registry is the shape of registry.json and of an import file.
type Registry struct {
	Version string         `json:"version,omitempty"`
	Plugins []model.Plugin `json:"plugins"`
}

var builtin = sync.OnceValue(func() []model.Plugin {
	var r Registry
	if err := json.Unmarshal(registryJSON, &r); err != nil {
		panic(fmt.Sprintf("plugins: bad embedded registry: %v", err))
	}
	return r.Plugins
})

// Builtin returns a copy of the shipped plugin definitions.
func Builtin() []model.Plugin {
	return slices.Clone(builtin())
}

// Merge resolves the effective enabled flag and setting values of p.
func Merge(p model.Plugin, st model.PluginState, custom bool) model.PluginView {
	enabled := p.DefaultEnabled
	if st.Enabled != nil {
		enabled = *st.Enabled
	}
	values := make(map[string]any, len(p.Settings))
	for _, s := range p.Settings {
		if v, ok := st.Settings[s.ID]; ok && v != nil {
			values[s.ID] = v
		} else {
			values[s.ID] = s.Value
		}
	}
	return model.PluginView{Plugin: p, Enabled: enabled, SettingsMap: values, Custom: custom}
}

// Catalog merges built-in and custom definitions with their stored state.
// Built-ins come first; a custom plugin reusing an earlier id is skipped.
func Catalog(base, custom []model.Plugin, states map[string]model.PluginState) []model.PluginView {
	seen := make(map[string]bool, len(base)+len(custom))
	out := make([]model.PluginView, 0, len(base)+len(custom))
	add := func(list []model.Plugin, isCustom bool) {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, Merge(p, states[p.ID], isCustom))
		}
	}
	add(base, false)
	add(custom, true)
	return out
}

// Find returns the view with the given id.
func Find(views []model.PluginView, id string) (model.PluginView, bool) {
	for _, v := range views {
		if v.ID == id {
			return v, true
		}
	}
	return model.PluginView{}, false
}

// Active returns what the model needs to know about every enabled plugin.
func Active(views []model.PluginView) []model.ActivePlugin {
	out := []model.ActivePlugin{}
	for _, v := range views {
		if v.Enabled {
			out = append(out, model.ActivePlugin{ID: v.ID, Endpoint: v.Endpoint, Settings: v.SettingsMap})
		}
	}
	return out
}

func CountActive(views []model.PluginView) int {
	n := 0
	for _, v := range views {
		if v.Enabled {
			n++
		}
	}
	return n
}

// ParseImport reads either a bare JSON array of plugins or an object with a
// "plugins" array, and returns the sanitized list.
func ParseImport(data []byte) ([]model.Plugin, error) {
	data = bytes.TrimSpace(data)
	var list []model.Plugin
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: empty input", ErrInvalidImport)
	case data[0] == '[':
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
		}
	default:
		var r Registry
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
		}
		if r.Plugins == nil {
			return nil, fmt.Errorf("%w: no plugins array", ErrInvalidImport)
		}
		list = r.Plugins
	}
	return Sanitize(list), nil
}

// Sanitize keeps definitions that have both an id and a name, trims their
// identifiers and drops repeated ids.
func Sanitize(list []model.Plugin) []model.Plugin {
	out := []model.Plugin{}
	seen := map[string]bool{}
	for _, p := range list {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// SettingOf returns the definition of settingID in p.
func SettingOf(p model.Plugin, settingID string) (model.PluginSetting, error) {
	for _, s := range p.Settings {
		if s.ID == settingID {
			return s, nil
		}
	}
	return model.PluginSetting{}, fmt.Errorf("%w: %s.%s", ErrUnknownSetting, p.ID, settingID)
}

// Validate checks v against the setting type and returns it normalized.
func Validate(s model.PluginSetting, v any) (any, error) {
	switch s.Type {
	case model.SettingToggle:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants true or false", ErrInvalidValue, s.ID)
		}
		return b, nil
	case model.SettingSelect:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a string", ErrInvalidValue, s.ID)
		}
		if len(s.Options) > 0 && !slices.Contains(s.Options, str) {
			return nil, fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, s.ID, strings.Join(s.Options, ", "))
		}
		return str, nil
	case model.SettingRange:
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		case json.Number:
			var err error
			if f, err = n.Float64(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, s.ID, err)
			}
		default:
			return nil, fmt.Errorf("%w: %s wants a number", ErrInvalidValue, s.ID)
		}
		if (s.Min != nil && f < *s.Min) || (s.Max != nil && f > *s.Max) {
			return nil, fmt.Errorf("%w: %s out of range", ErrInvalidValue, s.ID)
		}
		return f, nil
	}
	return v, nil
}

// ParseValue converts a command-line string to the setting's value type.
func ParseValue(s model.PluginSetting, raw string) (any, error) {
	switch s.Type {
	case model.SettingToggle:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, s.ID, err)
		}
		return b, nil
	case model.SettingRange:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, s.ID, err)
		}
		return f, nil
	}
	return raw, nil
}
