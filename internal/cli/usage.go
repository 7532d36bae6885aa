package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/cloe-sim/cloe-go/internal/plugin"
	"github.com/cloe-sim/cloe-go/internal/plugin/demobasic"
	"github.com/cloe-sim/cloe-go/internal/stack"
)

// bindingInfo is one entry of `cloe usage`'s output: a binding's manifest
// plus its self-declared argument schema, when it has one.
type bindingInfo struct {
	Binding     string `json:"binding"`
	Type        string `json:"type"`
	TypeVersion string `json:"type_version"`
	ArgsSchema  string `json:"args_schema,omitempty"`
}

// NewUsageCommand creates the `usage` subcommand: list every registered
// plugin binding with its manifest and argument schema (the Plugin Registry
// of SPEC_FULL.md §4.2). With `--stack`, engine.plugin_path from
// the given stackfiles is also scanned for dynamically loadable bindings,
// matching what `run`/`check` would see (reusing loadStack's own
// discovery pass rather than repeating it).
func NewUsageCommand(root *RootOptions) *cobra.Command {
	var stackPaths []string

	cmd := &cobra.Command{
		Use:           "usage [binding]",
		Short:         "List registered plugin bindings and their argument schemas",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := root.formatter(cmd)

			var registry *plugin.Registry
			if len(stackPaths) > 0 {
				_, r, err := loadStack(stackPaths, root.Strict)
				if err != nil {
					return WrapExitError("usage failed", err)
				}
				registry = r
			} else {
				registry = plugin.NewRegistry()
				if err := demobasic.Register(registry); err != nil {
					return WrapExitError("registering built-in plugins", err)
				}
			}

			if len(args) == 1 {
				return usageOne(f, registry, args[0])
			}

			bindings := registry.Bindings()
			sort.Strings(bindings)
			infos := make([]bindingInfo, 0, len(bindings))
			for _, b := range bindings {
				infos = append(infos, describeBinding(registry, b))
			}
			return f.Success(infos)
		},
	}

	cmd.Flags().StringArrayVar(&stackPaths, "stack", nil, "stackfile(s) to scan for engine.plugin_path")
	return cmd
}

func usageOne(f *OutputFormatter, registry *plugin.Registry, binding string) error {
	if _, err := registry.Get(binding); err != nil {
		_ = f.Error("PLUGIN_LOAD_ERROR", err.Error())
		return WrapExitError("usage failed", err)
	}
	return f.Success(describeBinding(registry, binding))
}

func describeBinding(registry *plugin.Registry, binding string) bindingInfo {
	fac, err := registry.Get(binding)
	if err != nil {
		return bindingInfo{Binding: binding}
	}
	m := fac.Manifest()
	info := bindingInfo{Binding: m.Binding, Type: string(m.Type), TypeVersion: m.TypeVersion}
	if sp, ok := fac.(stack.SchemaProvider); ok {
		info.ArgsSchema = sp.ArgsSchema()
	}
	return info
}
