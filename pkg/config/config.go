// Package config loads server settings from msbuildls.hcl or msbuildls.yaml
// and from the client's initializationOptions.
package config

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileNames are tried in order in the workspace root.
var FileNames = []string{"msbuildls.hcl", "msbuildls.yaml", "msbuildls.yml"}

type Settings struct {
	LogLevel         string            `json:"logLevel,omitempty" yaml:"log_level,omitempty" hcl:"log_level,optional"`
	LogFile          string            `json:"logFile,omitempty" yaml:"log_file,omitempty" hcl:"log_file,optional"`
	SdkRoots         []string          `json:"sdkRoots,omitempty" yaml:"sdk_roots,omitempty" hcl:"sdk_roots,optional"`
	GlobalProperties map[string]string `json:"globalProperties,omitempty" yaml:"global_properties,omitempty" hcl:"global_properties,optional"`

	Completion *Completion `json:"completion,omitempty" yaml:"completion,omitempty" hcl:"completion,block"`
}

type Completion struct {
	Snippets            *bool `json:"snippets,omitempty" yaml:"snippets,omitempty" hcl:"snippets,optional"`
	WellKnownProperties *bool `json:"wellKnownProperties,omitempty" yaml:"well_known_properties,omitempty" hcl:"well_known_properties,optional"`
}

func Default() Settings {
	return Settings{LogLevel: "info"}
}

// Level is the configured log level, info when unset or unknown.
func (s Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil || s.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (s Settings) SnippetsEnabled() bool {
	return s.Completion == nil || s.Completion.Snippets == nil || *s.Completion.Snippets
}

func (s Settings) WellKnownPropertiesEnabled() bool {
	return s.Completion == nil || s.Completion.WellKnownProperties == nil || *s.Completion.WellKnownProperties
}

func (s Settings) EvaluationOptions() evaluation.Options {
	return evaluation.Options{
		SdkRoots:         append([]string(nil), s.SdkRoots...),
		GlobalProperties: s.GlobalProperties,
	}
}

// Merge returns s with every field set in override replacing its own.
func (s Settings) Merge(override Settings) Settings {
	if override.LogLevel != "" {
		s.LogLevel = override.LogLevel
	}
	if override.LogFile != "" {
		s.LogFile = override.LogFile
	}
	if len(override.SdkRoots) > 0 {
		s.SdkRoots = override.SdkRoots
	}
	if len(override.GlobalProperties) > 0 {
		merged := make(map[string]string, len(s.GlobalProperties)+len(override.GlobalProperties))
		for k, v := range s.GlobalProperties {
			merged[k] = v
		}
		for k, v := range override.GlobalProperties {
			merged[k] = v
		}
		s.GlobalProperties = merged
	}
	if c := override.Completion; c != nil {
		next := Completion{}
		if s.Completion != nil {
			next = *s.Completion
		}
		if c.Snippets != nil {
			next.Snippets = c.Snippets
		}
		if c.WellKnownProperties != nil {
			next.WellKnownProperties = c.WellKnownProperties
		}
		s.Completion = &next
	}
	return s
}

// Load reads the first settings file found in dir over the defaults.
func Load(fs afero.Fs, dir string) (Settings, error) {
	loaded, _, err := Find(fs, dir)
	if err != nil {
		return Settings{}, err
	}
	return Default().Merge(loaded), nil
}

// Find decodes the first settings file found in dir, reporting whether there
// was one. Unset fields stay empty.
func Find(fs afero.Fs, dir string) (Settings, bool, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return Settings{}, false, errors.Errorf("checking %s: %w", path, err)
		}
		if !ok {
			continue
		}
		loaded, err := LoadFile(fs, path)
		if err != nil {
			return Settings{}, false, err
		}
		return loaded, true, nil
	}
	return Settings{}, false, nil
}

// LoadFile decodes a settings file, choosing the format from its extension.
func LoadFile(fs afero.Fs, path string) (Settings, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Settings{}, errors.Errorf("reading config file: %w", err)
	}

	var cfg Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Settings{}, errors.Errorf("parsing YAML %s: %w", path, err)
		}
	default:
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return Settings{}, errors.Errorf("parsing HCL: %s", diags.Error())
		}
		if diags := gohcl.DecodeBody(file.Body, evalContext(path), &cfg); diags.HasErrors() {
			return Settings{}, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}
	return cfg, nil
}

// evalContext lets HCL settings refer to the directory holding them, as in
// sdk_roots = ["${config_dir}/sdks"].
func evalContext(path string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"config_dir": cty.StringVal(filepath.Dir(path)),
		},
	}
}

// FromInitializationOptions decodes the JSON object a client sends in
// initialize. A nil value yields empty settings.
func FromInitializationOptions(raw any) (Settings, error) {
	var cfg Settings
	if raw == nil {
		return cfg, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return cfg, errors.Errorf("encoding initialization options: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Errorf("decoding initialization options: %w", err)
	}
	return cfg, nil
}
