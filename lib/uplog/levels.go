package uplog

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
)

// SetupLogLevels applies the default subsystem levels unless GOLOG_LOG_LEVEL
// is already set in the environment.
func SetupLogLevels() {
	if _, set := os.LookupEnv("GOLOG_LOG_LEVEL"); set {
		return
	}
	_ = logging.SetLogLevel("*", "INFO")
	_ = logging.SetLogLevel("rpc", "WARN")
	_ = logging.SetLogLevel("ethchain", "WARN")
}

// SetLevel overrides the level of every subsystem.
func SetLevel(lvl string) error {
	return logging.SetLogLevel("*", lvl)
}
