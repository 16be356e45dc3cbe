package config

import (
	"encoding"
	"time"

	"github.com/filecoin-project/foc-uploader/build"
)

const DefaultRepoPath = "~/.foc-upload"

func DefaultConfig() *Config {
	return &Config{
		Network: Network{
			Name: build.Calibnet.Name,
		},
		Endpoints: Endpoints{
			EthRPC:    "https://api.calibration.node.glif.io/rpc/v1",
			LedgerRPC: "http://127.0.0.1:3470/rpc/v0",
		},
		Storage: Storage{
			PersistenceDays:     build.DefaultPersistenceDays,
			CreationFee:         build.DataSetCreationFee,
			Tolerance:           build.BalanceTolerance,
			ScaleAnomalyPolicy:  "bypass",
			MaxLockupPeriodDays: build.DefaultMaxLockupPeriodDays,
		},
		Polling: Polling{
			MinBackoff:        Duration(time.Second),
			MaxBackoff:        Duration(30 * time.Second),
			ConfirmationPolls: 60,
		},
		Repo: Repo{
			Path: DefaultRepoPath,
		},
	}
}

var _ encoding.TextMarshaler = (*Duration)(nil)
var _ encoding.TextUnmarshaler = (*Duration)(nil)

// Duration is a wrapper type for time.Duration
// for decoding and encoding from/to TOML
type Duration time.Duration

// UnmarshalText implements interface for TOML decoding
func (dur *Duration) UnmarshalText(text []byte) error {
	d, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*dur = Duration(d)
	return err
}

func (dur Duration) MarshalText() ([]byte, error) {
	d := time.Duration(dur)
	return []byte(d.String()), nil
}
