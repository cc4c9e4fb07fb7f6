// Package config loads baseline-warden.toml (or a YAML equivalent) and fills
// in defaults for everything the file leaves out.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jward/baseline-warden/internal/policy"
	"github.com/jward/baseline-warden/internal/report"
)

// DefaultPath is the config file scan reads when --config is not given.
const DefaultPath = "baseline-warden.toml"

// ErrNotFound is returned by Load when the config file does not exist.
var ErrNotFound = errors.New("config not found")

// Output formats.
const (
	FormatConsole       = "console"
	FormatJSON          = "json"
	FormatGHAnnotations = "gh-annotations"
)

var validFormats = map[string]bool{
	FormatConsole:       true,
	FormatJSON:          true,
	FormatGHAnnotations: true,
}

// Config is the resolved configuration.
type Config struct {
	Policy    PolicyConfig    `toml:"policy" yaml:"policy"`
	Include   IncludeConfig   `toml:"include" yaml:"include"`
	Ignore    IgnoreConfig    `toml:"ignore" yaml:"ignore"`
	Output    OutputConfig    `toml:"output" yaml:"output"`
	Allowlist AllowlistConfig `toml:"allowlist" yaml:"allowlist"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	History   HistoryConfig   `toml:"history" yaml:"history"`
}

type PolicyConfig struct {
	RequiredStatus string `toml:"required_status" yaml:"required_status"`
	// RequiredMaturity is an alias of RequiredStatus.
	RequiredMaturity string `toml:"required_maturity" yaml:"required_maturity"`
	UnknownBehavior  string `toml:"unknown_behavior" yaml:"unknown_behavior"`
}

type IncludeConfig struct {
	Paths []string `toml:"paths" yaml:"paths"`
}

type IgnoreConfig struct {
	Globs []string `toml:"globs" yaml:"globs"`
}

type OutputConfig struct {
	Formats         []string `toml:"formats" yaml:"formats"`
	JSONPath        string   `toml:"json_path" yaml:"json_path"`
	AnnotationLimit int      `toml:"annotation_limit" yaml:"annotation_limit"`
}

type AllowlistConfig struct {
	FeatureIDs []string `toml:"feature_ids" yaml:"feature_ids"`
	BCDKeys    []string `toml:"bcd_keys" yaml:"bcd_keys"`
	// CompatibilityKeys is an alias of BCDKeys; both lists apply.
	CompatibilityKeys []string `toml:"compatibility_keys" yaml:"compatibility_keys"`
}

type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// CacheConfig enables the detection cache when Path is set.
type CacheConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// HistoryConfig enables run history when Path is set. Keep bounds the
// number of stored runs; 0 keeps all.
type HistoryConfig struct {
	Path string `toml:"path" yaml:"path"`
	Keep int    `toml:"keep" yaml:"keep"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	return &Config{
		Policy: PolicyConfig{
			RequiredStatus:  string(policy.RequireNewlyOrWidely),
			UnknownBehavior: string(policy.UnknownWarn),
		},
		Include: IncludeConfig{
			Paths: []string{
				// Common web project locations (recursive)
				"**/templates/**",
				"**/static/**",
				// Top-level fallbacks
				"templates/**",
				"static/**",
				"src/**",
			},
		},
		Ignore: IgnoreConfig{
			Globs: []string{
				"node_modules/**",
				"dist/**",
				"build/**",
				"vendor/**",
				"coverage/**",
				".next/**",
				".vite/**",
				".output/**",
				"staticfiles/**",
				"**/*.min.*",
			},
		},
		Output: OutputConfig{
			Formats:         []string{FormatConsole, FormatJSON, FormatGHAnnotations},
			JSONPath:        "report.json",
			AnnotationLimit: report.DefaultAnnotationLimit,
		},
		Allowlist: AllowlistConfig{
			FeatureIDs: []string{},
			BCDKeys:    []string{},
		},
		Logging: LoggingConfig{Level: "info"},
		History: HistoryConfig{Keep: 50},
	}
}

// Load reads the config at path. The format follows the extension: .yaml
// and .yml are YAML, anything else TOML. Keys the file sets override the
// defaults; unknown keys are returned as dotted names so the caller can warn
// about them. A missing file yields an error wrapping ErrNotFound.
func Load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	var (
		file    Config
		unknown []string
		defined map[string]bool
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unknown, defined, err = decodeYAML(data, &file)
	default:
		unknown, defined, err = decodeTOML(data, &file)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Default()
	mergeConfig(cfg, &file, defined)
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, unknown, nil
}

// decodeTOML decodes data into into. It returns the unknown keys and the
// dotted names of every key the file sets.
func decodeTOML(data []byte, into *Config) ([]string, map[string]bool, error) {
	md, err := toml.Decode(string(data), into)
	if err != nil {
		return nil, nil, err
	}
	var unknown []string
	for _, k := range md.Undecoded() {
		unknown = append(unknown, k.String())
	}
	sort.Strings(unknown)

	defined := make(map[string]bool)
	for _, k := range md.Keys() {
		defined[k.String()] = true
	}
	return unknown, defined, nil
}

// decodeYAML is decodeTOML for YAML. Defined names cover two levels.
func decodeYAML(data []byte, into *Config) ([]string, map[string]bool, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return nil, nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	defined := make(map[string]bool)
	for section, v := range raw {
		defined[section] = true
		if table, ok := v.(map[string]any); ok {
			for k := range table {
				defined[section+"."+k] = true
			}
		}
	}
	return unknownKeys(raw), defined, nil
}

// knownKeys lists the keys of each section, shared by both formats.
var knownKeys = map[string]map[string]bool{
	"policy":    {"required_status": true, "required_maturity": true, "unknown_behavior": true},
	"include":   {"paths": true},
	"ignore":    {"globs": true},
	"output":    {"formats": true, "json_path": true, "annotation_limit": true},
	"allowlist": {"feature_ids": true, "bcd_keys": true, "compatibility_keys": true},
	"logging":   {"level": true},
	"cache":     {"path": true},
	"history":   {"path": true, "keep": true},
}

func unknownKeys(raw map[string]any) []string {
	var unknown []string
	for section, v := range raw {
		keys, ok := knownKeys[section]
		if !ok {
			unknown = append(unknown, section)
			continue
		}
		table, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for k := range table {
			if !keys[k] {
				unknown = append(unknown, section+"."+k)
			}
		}
	}
	sort.Strings(unknown)
	return unknown
}

// mergeConfig copies every value file sets onto cfg. A list the file sets
// to empty stays empty. Numbers are copied when defined names them, so an
// explicit 0 is kept.
func mergeConfig(cfg, file *Config, defined map[string]bool) {
	if file.Policy.RequiredMaturity != "" {
		cfg.Policy.RequiredStatus = file.Policy.RequiredMaturity
	}
	if file.Policy.RequiredStatus != "" {
		cfg.Policy.RequiredStatus = file.Policy.RequiredStatus
	}
	if file.Policy.UnknownBehavior != "" {
		cfg.Policy.UnknownBehavior = file.Policy.UnknownBehavior
	}
	if file.Include.Paths != nil {
		cfg.Include.Paths = file.Include.Paths
	}
	if file.Ignore.Globs != nil {
		cfg.Ignore.Globs = file.Ignore.Globs
	}
	if file.Output.Formats != nil {
		cfg.Output.Formats = file.Output.Formats
	}
	if file.Output.JSONPath != "" {
		cfg.Output.JSONPath = file.Output.JSONPath
	}
	if defined["output.annotation_limit"] {
		cfg.Output.AnnotationLimit = file.Output.AnnotationLimit
	}
	if file.Allowlist.FeatureIDs != nil {
		cfg.Allowlist.FeatureIDs = file.Allowlist.FeatureIDs
	}
	if file.Allowlist.BCDKeys != nil {
		cfg.Allowlist.BCDKeys = file.Allowlist.BCDKeys
	}
	if file.Allowlist.CompatibilityKeys != nil {
		cfg.Allowlist.CompatibilityKeys = file.Allowlist.CompatibilityKeys
	}
	if file.Logging.Level != "" {
		cfg.Logging.Level = file.Logging.Level
	}
	if file.Cache.Path != "" {
		cfg.Cache.Path = file.Cache.Path
	}
	if file.History.Path != "" {
		cfg.History.Path = file.History.Path
	}
	if defined["history.keep"] {
		cfg.History.Keep = file.History.Keep
	}
}

// Validate checks enumerated values and limits.
func (c *Config) Validate() error {
	if _, err := policy.ParseRequiredMaturity(c.Policy.RequiredStatus); err != nil {
		return fmt.Errorf("policy.required_status: %w", err)
	}
	if _, err := policy.ParseUnknownBehavior(c.Policy.UnknownBehavior); err != nil {
		return fmt.Errorf("policy.unknown_behavior: %w", err)
	}
	if err := ValidateFormats(c.Output.Formats); err != nil {
		return fmt.Errorf("output.formats: %w", err)
	}
	if c.Output.AnnotationLimit < 0 {
		return fmt.Errorf("output.annotation_limit: must not be negative, got %d", c.Output.AnnotationLimit)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep: must not be negative, got %d", c.History.Keep)
	}
	return nil
}

// ValidateFormats reports the first unsupported output format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("unsupported output format %q (want console, json or gh-annotations)", f)
		}
	}
	return nil
}

// AllowKeys returns the compatibility-key allowlist with both field names
// merged, first occurrence kept.
func (c *Config) AllowKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, list := range [][]string{c.Allowlist.BCDKeys, c.Allowlist.CompatibilityKeys} {
		for _, k := range list {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// EvalPolicy builds the evaluator policy. Call Validate first; invalid values
// fall back to the defaults.
func (c *Config) EvalPolicy() policy.Policy {
	p := policy.Default()
	if m, err := policy.ParseRequiredMaturity(c.Policy.RequiredStatus); err == nil {
		p.RequiredMaturity = m
	}
	if b, err := policy.ParseUnknownBehavior(c.Policy.UnknownBehavior); err == nil {
		p.UnknownBehavior = b
	}
	p.AllowFeatureIDs = append([]string(nil), c.Allowlist.FeatureIDs...)
	p.AllowKeys = c.AllowKeys()
	return p
}
