package app

import (
	"context"
	"fmt"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/plugins"
)

// PluginPatch changes a plugin's enabled flag and any number of its
// settings. Nil fields are left alone.
type PluginPatch struct {
	Enabled  *bool          `json:"enabled,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Plugins returns the built-in and imported plugins merged with their
// stored state.
func (o *Orchestrator) Plugins(ctx context.Context) ([]model.PluginView, error) {
	custom, err := o.state.CustomPlugins(ctx)
	if err != nil {
		return nil, err
	}
	states, err := o.state.PluginStates(ctx)
	if err != nil {
		return nil, err
	}
	return plugins.Catalog(plugins.Builtin(), custom, states), nil
}

// PatchPlugin applies patch to plugin id after validating every setting
// value against its definition. Nothing is written when any value is bad.
func (o *Orchestrator) PatchPlugin(ctx context.Context, id string, patch PluginPatch) (model.PluginView, error) {
	views, err := o.Plugins(ctx)
	if err != nil {
		return model.PluginView{}, err
	}
	view, ok := plugins.Find(views, id)
	if !ok {
		return model.PluginView{}, fmt.Errorf("%w: %s", plugins.ErrUnknownPlugin, id)
	}

	values := make(map[string]any, len(patch.Settings))
	for sid, raw := range patch.Settings {
		def, err := plugins.SettingOf(view.Plugin, sid)
		if err != nil {
			return view, err
		}
		if values[sid], err = plugins.Validate(def, raw); err != nil {
			return view, err
		}
	}

	st, err := o.state.UpdatePluginState(ctx, id, func(st *model.PluginState) error {
		if patch.Enabled != nil {
			on := *patch.Enabled
			st.Enabled = &on
		}
		if len(values) > 0 && st.Settings == nil {
			st.Settings = map[string]any{}
		}
		for k, v := range values {
			st.Settings[k] = v
		}
		return nil
	})
	if err != nil {
		return view, err
	}
	o.logger.Info("plugin updated",
		logging.Field{Key: "plugin", Value: id},
		logging.Field{Key: "settings", Value: len(values)})
	return plugins.Merge(view.Plugin, st, view.Custom), nil
}

// SetPluginEnabled turns plugin id on or off.
func (o *Orchestrator) SetPluginEnabled(ctx context.Context, id string, enabled bool) (model.PluginView, error) {
	return o.PatchPlugin(ctx, id, PluginPatch{Enabled: &enabled})
}

// SetPluginSetting stores one setting value of plugin id.
func (o *Orchestrator) SetPluginSetting(ctx context.Context, id, settingID string, value any) (model.PluginView, error) {
	return o.PatchPlugin(ctx, id, PluginPatch{Settings: map[string]any{settingID: value}})
}

// ImportPlugins replaces the imported plugin definitions with the ones in
// data (a JSON array, or an object with a "plugins" array) and returns the
// resulting catalog.
func (o *Orchestrator) ImportPlugins(ctx context.Context, data []byte) ([]model.PluginView, error) {
	list, err := plugins.ParseImport(data)
	if err != nil {
		return nil, err
	}
	if err := o.state.SetCustomPlugins(ctx, list); err != nil {
		return nil, err
	}
	o.logger.Info("plugins imported", logging.Field{Key: "count", Value: len(list)})
	return o.Plugins(ctx)
}

// ResetPlugins drops imported plugins and every stored plugin override.
func (o *Orchestrator) ResetPlugins(ctx context.Context) error {
	if err := o.state.ResetPlugins(ctx); err != nil {
		return err
	}
	o.logger.Info("plugins reset")
	return nil
}

func (o *Orchestrator) activePlugins(ctx context.Context) ([]model.ActivePlugin, error) {
	views, err := o.Plugins(ctx)
	if err != nil {
		return nil, err
	}
	return plugins.Active(views), nil
}
