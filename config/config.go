package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"curvefoundry/crypto"
	"curvefoundry/observability/logging"

	"github.com/BurntSushi/toml"
)

// Config is the foundryd node configuration.
type Config struct {
	DataDir        string  `toml:"DataDir"`
	GenesisFile    string  `toml:"GenesisFile"`
	KeystorePath   string  `toml:"KeystorePath"`
	MetricsAddress string  `toml:"MetricsAddress"`
	Logging        Logging `toml:"logging"`
}

// Logging selects the level, environment label and optional rotating file of
// the node logger.
type Logging struct {
	Level      string `toml:"Level"`
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

type loadOptions struct {
	passphrase func() (string, error)
}

// Option customises Load.
type Option func(*loadOptions)

// WithKeystorePassphraseSource encrypts a generated operator keystore with the
// passphrase returned by source. Without it generated keystores use an empty
// passphrase.
func WithKeystorePassphraseSource(source func() (string, error)) Option {
	return func(o *loadOptions) { o.passphrase = source }
}

// Load loads the configuration from the given path. A missing file is
// replaced by a default configuration together with a fresh operator
// keystore.
func Load(path string, opts ...Option) (*Config, error) {
	options := loadOptions{passphrase: func() (string, error) { return "", nil }}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}

	cfg.normalize(path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if err := ensureKeystore(cfg.KeystorePath, options); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoggerOptions maps the logging section onto the logger options for service.
func (c *Config) LoggerOptions(service string) logging.Options {
	opts := logging.Options{
		Service: service,
		Env:     c.Logging.Env,
		Level:   c.Logging.Level,
	}
	if c.Logging.File != "" {
		opts.File = &logging.FileSink{
			Path:       c.Logging.File,
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		}
	}
	return opts
}

// DatabasePath is where the node keeps its LevelDB store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "chaindata")
}

func (c *Config) normalize(configPath string) {
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = "./foundry-data"
	}
	c.GenesisFile = strings.TrimSpace(c.GenesisFile)
	c.KeystorePath = strings.TrimSpace(c.KeystorePath)
	if c.KeystorePath == "" {
		c.KeystorePath = defaultKeystorePath(configPath)
	}
	c.MetricsAddress = strings.TrimSpace(c.MetricsAddress)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Env = strings.TrimSpace(c.Logging.Env)
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	if c.Logging.File != "" && c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
}

func ensureKeystore(path string, options loadOptions) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		passphrase, passErr := options.passphrase()
		if passErr != nil {
			return passErr
		}
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		_, err := crypto.SaveToKeystore(path, key, passphrase, crypto.StandardScrypt)
		return err
	} else if err != nil {
		return err
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string, options loadOptions) (*Config, error) {
	cfg := &Config{
		DataDir:        "./foundry-data",
		MetricsAddress: "127.0.0.1:9464",
		Logging: Logging{
			Level: "info",
			Env:   "local",
		},
	}
	cfg.normalize(path)
	if err := ensureKeystore(cfg.KeystorePath, options); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
