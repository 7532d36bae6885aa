package cli

import (
	"log/slog"
	"path/filepath"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
	"github.com/cloe-sim/cloe-go/internal/plugin"
	"github.com/cloe-sim/cloe-go/internal/plugin/demobasic"
	"github.com/cloe-sim/cloe-go/internal/stack"
)

// loadStack compiles the given stackfiles in two passes. The first pass
// (registry nil) skips CUE schema composition entirely but still runs
// structural Validate, which is enough to read engine.plugin_path. The
// second pass registers every built-in binding plus whatever the first
// pass's plugin_path resolves to a *.so file, then recompiles with that
// populated registry so the CUE schema each plugin's ArgsSchema contributes
// is actually checked against the stackfile's `args`.
func loadStack(paths []string, strict bool) (*stack.Config, *plugin.Registry, error) {
	prelim, err := stack.Compile(paths, nil)
	if err != nil {
		return nil, nil, err
	}

	registry := plugin.NewRegistry()
	if err := demobasic.Register(registry); err != nil {
		return nil, nil, cloeerr.Configuration("registering built-in plugins", err)
	}

	ignoreMissing := false
	if prelim.Engine != nil {
		ignoreMissing = prelim.Engine.Plugins.IgnoreMissing
	}
	if strict {
		ignoreMissing = false
	}

	if prelim.Engine != nil {
		for _, dir := range prelim.Engine.PluginPath {
			matches, globErr := filepath.Glob(filepath.Join(dir, "*.so"))
			if globErr != nil {
				return nil, nil, cloeerr.Configuration("scanning plugin_path entry "+dir, globErr)
			}
			for _, so := range matches {
				if loadErr := registry.LoadDynamic(so); loadErr != nil {
					if !ignoreMissing {
						return nil, nil, loadErr
					}
					slog.Warn("plugin load failed; ignored (engine.plugins.ignore_missing)", "path", so, "error", loadErr)
				}
			}
		}
	}

	cfg, err := stack.Compile(paths, registry)
	if err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}
