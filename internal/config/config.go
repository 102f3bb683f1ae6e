// Package config layers a tangle project's settings from defaults, an
// optional `.tangle.yaml` file, environment variables and finally CLI
// flags, the outermost layer always winning (spec.md §1's "thin
// collaborator" config file, absent from the distilled spec but present
// in any real tool of this shape).
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config is the resolved settings a tangle invocation runs with, so
// internal/maincmd never reads the environment or a YAML file itself.
// AllowAbsolutePaths, OmitTrailingNewline and ShellEnabled seed the CLI
// flags of the same meaning (ShellEnabled becomes
// compiler.Options.ShellEnabled). EscDefault is loaded but no command
// reads it; blocks without `esc` always use compiler.DefaultEsc.
type Config struct {
	AllowAbsolutePaths  bool   `yaml:"allowAbsolutePaths" env:"ALLOW_ABSOLUTE_PATHS"`
	OmitTrailingNewline bool   `yaml:"omitTrailingNewline" env:"OMIT_TRAILING_NEWLINE"`
	EscDefault          string `yaml:"escDefault" env:"ESC_DEFAULT"`
	ShellEnabled        bool   `yaml:"shellEnabled" env:"SHELL_ENABLED"`
}

// Defaults returns the configuration a project gets with no `.tangle.yaml`
// file and no environment overrides.
func Defaults() Config {
	return Config{
		AllowAbsolutePaths:  false,
		OmitTrailingNewline: false,
		EscDefault:          "<<>>",
		ShellEnabled:        false,
	}
}

// EnvPrefix is prepended to every field's `env` tag when reading from the
// environment, matching the teacher's own `TANGLE_`-style convention for
// its CLI (internal/maincmd.binName-derived prefix).
const EnvPrefix = "TANGLE_"

// Load builds a Config by layering, in increasing priority: Defaults(),
// the YAML file at path (skipped entirely if it does not exist), and
// environment variables prefixed with EnvPrefix. CLI flags take precedence
// on the caller's side: mainer.Parser has already parsed them, and the
// caller copies a Config field only onto a flag that was not set.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
