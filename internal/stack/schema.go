package stack

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
	"github.com/cloe-sim/cloe-go/internal/plugin"
)

// coreSchema constrains the keys every stackfile shares, independent of
// which plugins are loaded. Per-binding `args` constraints are spliced in
// by ComposeSchema from each plugin's own declaration.
const coreSchema = `
version: string
simulators: [...{
	binding: string
	name?:   string
	args?:   _
}]
vehicles: [...{
	name: string
	from: {
		simulator: string
		index?:    int
		name?:     string
	}
	components?: [string]: {
		binding: string
		name?:   string
		from?:   string
		args?:   _
	}
}]
controllers: [...{
	binding: string
	vehicle: string
	args?:   _
}]
triggers?: [...]
server?: {
	listen?:        string
	port?:          int
	static_prefix?: string
}
engine?: {
	polling_interval_ms?: int
	output?: {
		path_prefix?: string
		files?: [string]: string
	}
	triggers?: {
		ignore_source?: [...string]
	}
	plugin_path?: [...string]
	plugins?: {
		ignore_missing?: bool
	}
	keep_alive?: bool
	watchdog?: {
		state_transition_ms?: int
		overrides?: [string]: int
	}
}
`

// SchemaProvider is an optional interface a plugin.Factory may implement
// to constrain its own `args` object beyond the core schema's permissive
// `_` (top). Plugins that don't implement it simply accept any args.
type SchemaProvider interface {
	ArgsSchema() string // a CUE struct literal, e.g. "{speed: number, lane: int}"
}

// ComposeSchema builds the CUE schema this run validates stackfiles
// against: the core schema, unified with every registered binding's own
// args sub-schema spliced under the matching simulators/components/
// controllers entry's `args` field via a CUE "matching" pattern
// constraint keyed on `binding`.
func ComposeSchema(ctx *cue.Context, registry *plugin.Registry) (cue.Value, error) {
	v := ctx.CompileString(coreSchema)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("stack: core schema: %w", err)
	}

	for _, binding := range registry.Bindings() {
		f, err := registry.Get(binding)
		if err != nil {
			continue
		}
		sp, ok := f.(SchemaProvider)
		if !ok {
			continue
		}
		frag := fmt.Sprintf(
			`simulators: [...({binding: %q, args?: %s} | {binding: !=%q})]
			 controllers: [...({binding: %q, args?: %s} | {binding: !=%q})]
			 vehicles: [...{components?: [string]: {binding: %q, args?: %s} | {binding: !=%q}}]`,
			binding, sp.ArgsSchema(), binding,
			binding, sp.ArgsSchema(), binding,
			binding, sp.ArgsSchema(), binding,
		)
		fv := ctx.CompileString(frag)
		if err := fv.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("stack: schema fragment for binding %q: %w", binding, err)
		}
		v = v.Unify(fv)
	}

	return v, nil
}

// ValidateSchema unifies merged (the decoded stackfile tree) with schema
// and reports the first structural mismatch as a ConfigurationError
// carrying CUE's own field path, per SPEC_FULL.md §4.10.
func ValidateSchema(ctx *cue.Context, schema cue.Value, merged map[string]any) error {
	data := ctx.Encode(merged)
	if err := data.Err(); err != nil {
		return cloeerr.Configuration("stackfile: could not encode merged config", err)
	}

	unified := schema.Unify(data)
	if err := unified.Validate(cue.Concrete(false), cue.All()); err != nil {
		return cloeerr.Configuration(formatCUEError(err), err)
	}
	return nil
}

func formatCUEError(err error) string {
	var b strings.Builder
	for _, e := range cueerrors.Errors(err) {
		path := e.Path()
		if len(path) > 0 {
			fmt.Fprintf(&b, "%s: %s; ", strings.Join(path, "."), e.Error())
		} else {
			fmt.Fprintf(&b, "%s; ", e.Error())
		}
	}
	if b.Len() == 0 {
		return err.Error()
	}
	return strings.TrimSuffix(b.String(), "; ")
}
