package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no config file is named.
const DefaultFile = "stepmesh.yaml"

// envPrefix namespaces the environment variables read by Load.
const envPrefix = "STEPMESH_"

// envKeys maps environment variables (without prefix) to configuration keys.
var envKeys = map[string]string{
	"KERNEL":                     "kernel",
	"LOG_LEVEL":                  "log.level",
	"LOG_FORMAT":                 "log.format",
	"CONVERT_OUTPUT":             "convert.output",
	"CONVERT_LINEAR_DEFLECTION":  "convert.tolerance.linear_deflection",
	"CONVERT_ANGULAR_DEFLECTION": "convert.tolerance.angular_deflection",
	"CONVERT_RELATIVE":           "convert.tolerance.relative",
	"EXPORT_OUTPUT_DIR":          "export.output_dir",
	"EXPORT_MANIFEST":            "export.manifest",
	"EXPORT_LINEAR_DEFLECTION":   "export.tolerance.linear_deflection",
	"EXPORT_ANGULAR_DEFLECTION":  "export.tolerance.angular_deflection",
	"EXPORT_RELATIVE":            "export.tolerance.relative",
	"PROCESS_COMMAND":            "process.command",
	"PROCESS_DIR":                "process.dir",
	"PROCESS_TIMEOUT":            "process.timeout",
	"REDIS_ADDR":                 "redis.addr",
	"REDIS_PASSWORD":             "redis.password",
	"REDIS_DB":                   "redis.db",
	"REDIS_PREFIX":               "redis.prefix",
	"REDIS_TTL":                  "redis.ttl",
	"METRICS_TEXTFILE":           "metrics.textfile",
	"SERVE_ADDR":                 "serve.addr",
}

// Options selects the sources Load reads.
type Options struct {
	// File is the YAML config path. Empty means DefaultFile, if it exists.
	File string
	// EnvFile is a dotenv file. Empty means ".env", if it exists.
	EnvFile string
	// Overrides are dotted keys (e.g. "export.output_dir") set from command-line flags.
	Overrides map[string]any
}

// Load merges all sources over Default, expands "~" in paths and validates the result.
func Load(opts Options) (*Config, error) {
	merged := map[string]any{}

	file, required := opts.File, true
	if file == "" {
		file, required = DefaultFile, false
	}
	if err := mergeYAML(merged, file, required); err != nil {
		return nil, err
	}

	env, err := readEnv(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	for name, key := range envKeys {
		if v, ok := env[envPrefix+name]; ok {
			setPath(merged, key, v)
		}
	}
	for key, v := range opts.Overrides {
		setPath(merged, key, v)
	}

	cfg := Default()
	if err := decode(merged, &cfg); err != nil {
		return nil, err
	}
	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeYAML(dst map[string]any, path string, required bool) error {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	mergeMaps(dst, raw)
	return nil
}

// readEnv returns the dotenv values overlaid with the process environment.
func readEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}
	file, required := envFile, true
	if file == "" {
		file, required = ".env", false
	}
	values, err := godotenv.Read(ExpandHome(file))
	switch {
	case err == nil:
		for k, v := range values {
			env[k] = v
		}
	case required || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeMaps(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func setPath(m map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

func decode(input map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report yaml keys rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// Validate checks field constraints and the kernel-specific settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed on '%s' tag", strings.TrimPrefix(e.Namespace(), "Config."), e.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Process.Timeout < 0 {
		return fmt.Errorf("invalid configuration: process.timeout must not be negative")
	}
	return nil
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Convert.Output,
		&c.Export.OutputDir,
		&c.Export.Manifest,
		&c.Metrics.Textfile,
		&c.Process.Command,
		&c.Process.Dir,
	} {
		*p = ExpandHome(*p)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
