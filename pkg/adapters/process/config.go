package process

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/stepmesh/pkg/domain"
)

// Config describes the external CAD toolkit command.
type Config struct {
	Command     string            `yaml:"command" json:"command" mapstructure:"command"`
	Args        []string          `yaml:"args" json:"args" mapstructure:"args"`
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	Dir         string            `yaml:"dir" json:"dir" mapstructure:"dir"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// argPrefix namespaces the variables carrying run arguments to the command.
const argPrefix = "STEPMESH_ARG_"

// Validate reports configuration errors before anything is executed.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("%w: process.command is empty", domain.ErrKernelUnavailable)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("process.timeout must not be negative")
	}
	return nil
}

// environ builds the command environment: the current process environment, the
// configured variables, then the run arguments as STEPMESH_ARG_<NAME>=<value>.
// Arguments are passed in the environment rather than on the command line so that
// paths cannot be interpreted as flags.
func (c Config) environ(args map[string]any) []string {
	env := os.Environ()
	for _, k := range sortedKeys(c.Environment) {
		env = append(env, fmt.Sprintf("%s=%s", k, c.Environment[k]))
	}
	for _, k := range sortedKeys(args) {
		var val string
		switch v := args[k].(type) {
		case nil:
		case string:
			val = v
		default:
			val = fmt.Sprintf("%v", v)
		}
		env = append(env, fmt.Sprintf("%s%s=%s", argPrefix, strings.ToUpper(k), val))
	}
	return env
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toleranceArgs are the arguments of one tessellation run.
func toleranceArgs(input string, tol domain.Tolerance) map[string]any {
	return map[string]any{
		"input":              input,
		"linear_deflection":  tol.LinearDeflection,
		"angular_deflection": tol.AngularDeflection,
		"relative":           tol.Relative,
	}
}
