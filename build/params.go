package build

import (
	"golang.org/x/xerrors"
)

// EpochsPerDay is the number of 30 second epochs in a day.
const EpochsPerDay = 2880

// TokenDecimals is the decimal scale of USDFC.
const TokenDecimals = 18

// DefaultPersistenceDays is how long an upload is paid for when the caller
// does not say otherwise.
const DefaultPersistenceDays = 30

// DefaultMaxLockupPeriodDays bounds how far ahead the service may lock funds.
const DefaultMaxLockupPeriodDays = 30

// DataSetCreationFee is charged once, when an account creates its first
// data set. Expressed in whole tokens.
const DataSetCreationFee = "0.1"

// BalanceTolerance is the largest difference between two balance readings,
// as a fraction of the larger one, that still counts as agreement.
const BalanceTolerance = "0.01"

// ScaleAnomalyFactor is how many times smaller than the requirement a balance
// must be before it is treated as mis-scaled.
const ScaleAnomalyFactor = 1000

type Network struct {
	Name    string
	ChainID uint64
	// USDFC token contract
	TokenAddress string
}

var (
	Mainnet = Network{
		Name:         "mainnet",
		ChainID:      314,
		TokenAddress: "0x80B98d3aa09ffff255c3ba4A241111Ff1262F045",
	}

	Calibnet = Network{
		Name:         "calibration",
		ChainID:      314159,
		TokenAddress: "0xb3042734b608a1B16e9e86B374A3f3e389B4cDf0",
	}
)

func NetworkByName(name string) (Network, error) {
	switch name {
	case Mainnet.Name:
		return Mainnet, nil
	case Calibnet.Name, "calibnet":
		return Calibnet, nil
	default:
		return Network{}, xerrors.Errorf("unknown network %q", name)
	}
}
