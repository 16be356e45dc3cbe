package config

import (
	mathbig "math/big"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-state-types/abi"

	"github.com/filecoin-project/foc-uploader/build"
	"github.com/filecoin-project/foc-uploader/chain/types"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/funds"
)

// Normalize fills network fields left empty from the presets of the network
// name and checks the values that are parsed later.
func (c *Config) Normalize() error {
	if c.Network.Name != "" {
		preset, err := build.NetworkByName(c.Network.Name)
		if err != nil {
			return err
		}
		if c.Network.ChainID == 0 {
			c.Network.ChainID = preset.ChainID
		}
		if c.Network.TokenAddress == "" {
			c.Network.TokenAddress = preset.TokenAddress
		}
	}

	if _, err := c.Token(); err != nil {
		return err
	}
	if _, err := c.Service(); err != nil {
		return err
	}
	if _, err := c.Tolerance(); err != nil {
		return err
	}
	if _, err := c.CreationFee(); err != nil {
		return err
	}
	if _, err := funds.ParseScaleAnomalyPolicy(c.Storage.ScaleAnomalyPolicy); err != nil {
		return err
	}
	if c.Storage.PersistenceDays <= 0 {
		return xerrors.Errorf("Storage.PersistenceDays must be positive, got %d", c.Storage.PersistenceDays)
	}
	if c.Polling.MinBackoff <= 0 || c.Polling.MaxBackoff < c.Polling.MinBackoff {
		return xerrors.Errorf("invalid polling backoff %s..%s", time.Duration(c.Polling.MinBackoff), time.Duration(c.Polling.MaxBackoff))
	}
	return nil
}

// Account returns the paying wallet address.
func (c *Config) Account() (ethtypes.EthAddress, error) {
	if c.Wallet.Address == "" {
		return ethtypes.EthAddress{}, xerrors.New("no wallet address configured (Wallet.Address or FOCUP_WALLET_ADDRESS)")
	}
	a, err := ethtypes.ParseEthAddress(c.Wallet.Address)
	if err != nil {
		return ethtypes.EthAddress{}, xerrors.Errorf("parsing Wallet.Address: %w", err)
	}
	return a, nil
}

func (c *Config) Token() (ethtypes.EthAddress, error) {
	a, err := ethtypes.ParseEthAddress(c.Network.TokenAddress)
	if err != nil {
		return ethtypes.EthAddress{}, xerrors.Errorf("parsing Network.TokenAddress: %w", err)
	}
	return a, nil
}

// Service returns the storage service operator, or nil when unset.
func (c *Config) Service() (*ethtypes.EthAddress, error) {
	if c.Network.ServiceAddress == "" {
		return nil, nil
	}
	a, err := ethtypes.ParseEthAddress(c.Network.ServiceAddress)
	if err != nil {
		return nil, xerrors.Errorf("parsing Network.ServiceAddress: %w", err)
	}
	return &a, nil
}

func (c *Config) Tolerance() (*mathbig.Rat, error) {
	r, ok := new(mathbig.Rat).SetString(c.Storage.Tolerance)
	if !ok || r.Sign() < 0 {
		return nil, xerrors.Errorf("invalid Storage.Tolerance %q", c.Storage.Tolerance)
	}
	return r, nil
}

func (c *Config) CreationFee() (abi.TokenAmount, error) {
	v, err := types.ParseTokenAmount(c.Storage.CreationFee, build.TokenDecimals)
	if err != nil {
		return abi.TokenAmount{}, xerrors.Errorf("parsing Storage.CreationFee: %w", err)
	}
	return v, nil
}

// MaxLockupPeriod is the lockup bound in epochs.
func (c *Config) MaxLockupPeriod() abi.ChainEpoch {
	return abi.ChainEpoch(c.Storage.MaxLockupPeriodDays) * build.EpochsPerDay
}

// RepoPath returns the expanded repo directory.
func (c *Config) RepoPath() (string, error) {
	p, err := homedir.Expand(c.Repo.Path)
	if err != nil {
		return "", xerrors.Errorf("expanding repo path: %w", err)
	}
	return p, nil
}

// DatastorePath is where session records are kept.
func (c *Config) DatastorePath() (string, error) {
	p, err := c.RepoPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(p, "datastore"), nil
}
