// Package config loads settings for the weatherdash CLI: defaults, an
// optional YAML file and persistent flags, merged with koanf.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config struct {
	ServerAddr string        `koanf:"server_addr"`
	TokenFile  string        `koanf:"token_file"`
	Timeout    time.Duration `koanf:"timeout"`
}

// DefaultTokenFile is <user config dir>/weatherdash/token, or a dot file in
// the working directory when no config dir is known.
func DefaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".weatherdash-token"
	}
	return filepath.Join(dir, "weatherdash", "token")
}

func Defaults() Config {
	return Config{
		ServerAddr: "127.0.0.1:50051",
		TokenFile:  DefaultTokenFile(),
		Timeout:    15 * time.Second,
	}
}

func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.StringP("config", "c", "", "path to a YAML config file")
	fs.StringP("server_addr", "a", d.ServerAddr, "gRPC address of the weatherdash server")
	fs.String("token_file", d.TokenFile, "where the session token is kept")
	fs.Duration("timeout", d.Timeout, "per-call timeout")
}

// Load reads the --config file, then the flags in fs. Flags set on the
// command line win over the file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("config flag: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	return validation.Errors{
		"server_addr": validation.Validate(c.ServerAddr, validation.Required),
		"token_file":  validation.Validate(c.TokenFile, validation.Required),
		"timeout":     validation.Validate(c.Timeout, validation.Required, validation.Min(time.Millisecond)),
	}.Filter()
}
