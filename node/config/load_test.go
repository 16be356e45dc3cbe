package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/foc-uploader/build"
	"github.com/filecoin-project/foc-uploader/chain/types"
)

func TestDefaultConfigRoundTrip(t *testing.T) {
	text, err := ConfigText(DefaultConfig())
	require.NoError(t, err)
	require.Contains(t, string(text), `MinBackoff = "1s"`)

	cfg, err := FromReader(strings.NewReader(string(text)), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestFromReaderOverDefaults(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(`
[Network]
  Name = "mainnet"

[Wallet]
  Address = "0x01184F793982104363F9a8a5845743f452dE0586"

[Polling]
  MaxBackoff = "2m"
`), DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, cfg.Normalize())

	require.EqualValues(t, build.Mainnet.ChainID, cfg.Network.ChainID)
	require.Equal(t, build.Mainnet.TokenAddress, cfg.Network.TokenAddress)
	require.Equal(t, Duration(2*time.Minute), cfg.Polling.MaxBackoff)
	require.Equal(t, Duration(time.Second), cfg.Polling.MinBackoff)
	require.Equal(t, build.DefaultPersistenceDays, cfg.Storage.PersistenceDays)

	acct, err := cfg.Account()
	require.NoError(t, err)
	require.Equal(t, "0x01184f793982104363f9a8a5845743f452de0586", acct.String())

	fee, err := cfg.CreationFee()
	require.NoError(t, err)
	require.Equal(t, "0.1", types.FormatTokenAmount(fee, build.TokenDecimals))

	tol, err := cfg.Tolerance()
	require.NoError(t, err)
	require.Equal(t, "1/100", tol.String())

	require.EqualValues(t, 30*build.EpochsPerDay, cfg.MaxLockupPeriod())
}

func TestFromReaderUnknownKey(t *testing.T) {
	_, err := FromReader(strings.NewReader("[Storage]\nPersistanceDays = 3\n"), DefaultConfig())
	require.Error(t, err)
}

func TestFromFileMissing(t *testing.T) {
	def := DefaultConfig()
	cfg, err := FromFile(filepath.Join(t.TempDir(), "config.toml"), def)
	require.NoError(t, err)
	require.Same(t, def, cfg)

	_, err = FromFile(filepath.Join(t.TempDir(), "config.toml"), nil)
	require.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Endpoints]\nProviderID = 4\n"), 0644))

	t.Setenv("FOCUP_ENDPOINTS_PROVIDERURL", "https://sp.example.com")
	t.Setenv("FOCUP_POLLING_CONFIRMATIONPOLLS", "7")
	t.Setenv("FOCUP_POLLING_MINBACKOFF", "250ms")
	t.Setenv("FOCUP_STORAGE_WITHCDN", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 4, cfg.Endpoints.ProviderID)
	require.Equal(t, "https://sp.example.com", cfg.Endpoints.ProviderURL)
	require.Equal(t, 7, cfg.Polling.ConfirmationPolls)
	require.Equal(t, Duration(250*time.Millisecond), cfg.Polling.MinBackoff)
	require.True(t, cfg.Storage.WithCDN)
	require.EqualValues(t, build.Calibnet.ChainID, cfg.Network.ChainID)
}

func TestNormalizeRejects(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"network":   func(c *Config) { c.Network.Name = "devnet" },
		"token":     func(c *Config) { c.Network.TokenAddress = "0x12" + "zz" },
		"service":   func(c *Config) { c.Network.ServiceAddress = "nope" },
		"tolerance": func(c *Config) { c.Storage.Tolerance = "-1" },
		"fee":       func(c *Config) { c.Storage.CreationFee = "lots" },
		"policy":    func(c *Config) { c.Storage.ScaleAnomalyPolicy = "ignore" },
		"days":      func(c *Config) { c.Storage.PersistenceDays = 0 },
		"backoff":   func(c *Config) { c.Polling.MaxBackoff = Duration(time.Millisecond) },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Normalize())
		})
	}

	_, err := DefaultConfig().Account()
	require.Error(t, err)
}
