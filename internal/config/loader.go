package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vigil-dev/vigil/internal/errors"
)

const (
	// FileName is what vigil looks for in the working directory.
	FileName = "vigil.yaml"
	// globalDirName is the subdirectory of the user config dir holding
	// the global config file.
	globalDirName = "vigil"
	// globalFileName is the global config file name.
	globalFileName = "config.yaml"
)

// Find locates the config file:
//  1. the explicit path (from --config), which must exist
//  2. vigil.yaml in the working directory
//  3. config.yaml in the user config dir (~/.config/vigil on Linux)
//
// An empty return with nil error means no config file anywhere, which is
// fine: defaults apply and the host book is empty.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, FileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		global := filepath.Join(dir, globalDirName, globalFileName)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalPath returns where the global config file lives, whether or not
// it exists yet. Host book edits land here when no local file is found.
func GlobalPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine the user config directory",
			"Set HOME (or XDG_CONFIG_HOME) and try again")
	}
	return filepath.Join(dir, globalDirName, globalFileName), nil
}

// Load reads and validates the config file at path. A .env file in the
// working directory is loaded first so VIGIL_* overrides in it apply.
func Load(path string) (*Config, error) {
	// Best effort: a missing .env is the normal case.
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create "+FileName+" or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check that "+path+" is valid YAML")
	}

	return parse(v, path)
}

// LoadOrDefault loads the found config file, or returns stock defaults
// when there is none. Env overrides still apply in the default case.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		_ = godotenv.Load()
		return parse(newViper(), "")
	}
	return Load(path)
}

// newViper builds a viper instance with vigil's defaults and VIGIL_*
// environment bindings in place.
func newViper() *viper.Viper {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("defaults.interval", def.Defaults.Interval)
	v.SetDefault("defaults.command_timeout", def.Defaults.CommandTimeout)
	v.SetDefault("defaults.connect_timeout", def.Defaults.ConnectTimeout)
	v.SetDefault("defaults.transport", def.Defaults.Transport)

	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flat spellings for the common knobs: VIGIL_INTERVAL beats
	// VIGIL_DEFAULTS_INTERVAL for something typed by hand.
	_ = v.BindEnv("defaults.interval", "VIGIL_INTERVAL")
	_ = v.BindEnv("defaults.command_timeout", "VIGIL_COMMAND_TIMEOUT")
	_ = v.BindEnv("defaults.connect_timeout", "VIGIL_CONNECT_TIMEOUT")
	_ = v.BindEnv("defaults.transport", "VIGIL_TRANSPORT")

	return v
}

// parse unmarshals viper state into a Config, expands paths, and
// validates the result.
func parse(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	for i, h := range cfg.Hosts {
		cfg.Hosts[i].KeyFile = ExpandPath(h.KeyFile)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
