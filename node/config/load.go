package config

import (
	"bytes"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

// EnvPrefix prefixes environment overrides, e.g. FOCUP_ENDPOINTS_PROVIDERURL.
const EnvPrefix = "FOCUP"

// FromFile loads config from path over def. A missing file yields def.
func FromFile(path string, def *Config) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("expanding config path: %w", err)
	}

	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		if def == nil {
			return nil, xerrors.Errorf("couldn't load config: %w", err)
		}
		return def, nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck // The file is RO
	return FromReader(file, def)
}

// FromReader decodes TOML over a copy of def.
func FromReader(reader io.Reader, def *Config) (*Config, error) {
	cfg := DefaultConfig()
	if def != nil {
		cp := *def
		cfg = &cp
	}

	md, err := toml.NewDecoder(reader).Decode(cfg)
	if err != nil {
		return nil, xerrors.Errorf("decoding config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, xerrors.Errorf("unknown config keys: %v", undecoded)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with FOCUP_<SECTION>_<FIELD> variables.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return xerrors.Errorf("reading environment overrides: %w", err)
	}
	return nil
}

// Load reads the config file and environment overrides, then fills and
// checks the result.
func Load(path string) (*Config, error) {
	cfg, err := FromFile(path, DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigText renders cfg as TOML.
func ConfigText(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, xerrors.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
