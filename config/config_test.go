package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"curvefoundry/crypto"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./foundry-data", cfg.DataDir)
	require.Equal(t, "127.0.0.1:9464", cfg.MetricsAddress)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, filepath.Join(dir, "operator.keystore"), cfg.KeystorePath)
	require.FileExists(t, path)

	key, err := crypto.LoadFromKeystore(cfg.KeystorePath, "")
	require.NoError(t, err)
	require.NotNil(t, key)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keystorePath := filepath.Join(dir, "keys", "node.keystore")
	contents := `DataDir = " /var/lib/foundry "
GenesisFile = "genesis.json"
KeystorePath = "` + keystorePath + `"
MetricsAddress = ":9100"

[logging]
Level = "DEBUG"
File = "/var/log/foundryd.log"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/foundry", cfg.DataDir)
	require.Equal(t, filepath.Join("/var/lib/foundry", "chaindata"), cfg.DatabasePath())
	require.Equal(t, "genesis.json", cfg.GenesisFile)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "local", cfg.Logging.Env)
	require.Equal(t, 100, cfg.Logging.MaxSizeMB)
	require.FileExists(t, keystorePath)

	opts := cfg.LoggerOptions("foundryd")
	require.Equal(t, "foundryd", opts.Service)
	require.NotNil(t, opts.File)
	require.Equal(t, "/var/log/foundryd.log", opts.File.Path)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "DataDir = \"x\"\nListenAddress = \":6001\"\n",
		"bad level":      "[logging]\nLevel = \"verbose\"\n",
		"bad metrics":    "MetricsAddress = \"localhost\"\n",
		"negative limit": "[logging]\nMaxBackups = -1\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoggerOptionsWithoutFile(t *testing.T) {
	cfg := &Config{Logging: Logging{Level: "warn", Env: "prod"}}
	opts := cfg.LoggerOptions("foundryd")
	require.Nil(t, opts.File)
	require.Equal(t, "prod", opts.Env)
	require.Equal(t, "warn", opts.Level)
}

func TestLoadEncryptsGeneratedKeystore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path, WithKeystorePassphraseSource(func() (string, error) { return "s3cret", nil }))
	require.NoError(t, err)
	_, err = crypto.LoadFromKeystore(cfg.KeystorePath, "")
	require.Error(t, err)
	_, err = crypto.LoadFromKeystore(cfg.KeystorePath, "s3cret")
	require.NoError(t, err)
}
