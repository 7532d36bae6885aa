package stack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
	"github.com/cloe-sim/cloe-go/internal/plugin"
)

// LoadRaw reads one stackfile from disk and decodes it into the generic
// map[string]any tree CUE validation operates on, choosing a decoder by
// file extension: .yml/.yaml go through gopkg.in/yaml.v3 (whose decoder
// already produces map[string]any/[]any, unlike v2's map[interface{}]
// interface{}), anything else is treated as JSON.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cloeerr.Configuration(fmt.Sprintf("reading stackfile %q", path), err)
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, cloeerr.Configuration(fmt.Sprintf("parsing stackfile %q as YAML", path), err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, cloeerr.Configuration(fmt.Sprintf("parsing stackfile %q as JSON", path), err)
		}
	}
	return raw, nil
}

// decode re-marshals a raw map into a typed Config, relying on the
// json.RawMessage fields to defer plugin-specific args until Make time.
func decode(raw map[string]any) (*Config, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, cloeerr.Configuration("stackfile: re-encoding merged config", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, cloeerr.Configuration("stackfile: decoding merged config", err)
	}
	return &cfg, nil
}

// Compile loads, merges, and validates one or more stackfiles in the
// order given (later files override/extend earlier ones), against both
// the structural checks in Validate and the CUE schema ComposeSchema
// builds from the plugin registry. The returned Config is ready for the
// Vehicle & Component Graph builder to consume.
func Compile(paths []string, registry *plugin.Registry) (*Config, error) {
	if len(paths) == 0 {
		return nil, cloeerr.Configuration("no stackfiles given", nil)
	}

	var cfg *Config
	for _, p := range paths {
		raw, err := LoadRaw(p)
		if err != nil {
			return nil, err
		}
		overlay, err := decode(raw)
		if err != nil {
			return nil, err
		}
		cfg = Merge(cfg, overlay)
	}

	if errs := Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, cloeerr.Configuration("stackfile validation failed: "+strings.Join(msgs, "; "), nil)
	}

	if registry != nil {
		data, err := json.Marshal(cfg)
		if err != nil {
			return nil, cloeerr.Configuration("stackfile: re-encoding merged config for schema check", err)
		}
		var mergedRaw map[string]any
		if err := json.Unmarshal(data, &mergedRaw); err != nil {
			return nil, cloeerr.Configuration("stackfile: decoding merged config for schema check", err)
		}

		ctx := cuecontext.New()
		schema, err := ComposeSchema(ctx, registry)
		if err != nil {
			return nil, cloeerr.Configuration("composing stack schema", err)
		}
		if err := ValidateSchema(ctx, schema, mergedRaw); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
