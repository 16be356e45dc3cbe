package config

// NOTE: ONLY PUT STRUCT DEFINITIONS IN THIS FILE

// Config is the uploader configuration, read from config.toml in the repo
// and overridden by FOCUP_* environment variables.
type Config struct {
	Network   Network
	Wallet    Wallet
	Endpoints Endpoints
	Storage   Storage
	Polling   Polling
	Repo      Repo
}

type Network struct {
	// Name selects the network presets: mainnet or calibration.
	Name string
	// ChainID and TokenAddress default to the presets of Name.
	ChainID      uint64
	TokenAddress string
	// ServiceAddress is the storage service allowed to draw on deposits.
	// Empty lets the ledger use its own.
	ServiceAddress string
}

type Wallet struct {
	// Address is the 0x address that pays for and owns uploads.
	Address string
}

type Endpoints struct {
	// EthRPC is a Filecoin node's JSON-RPC endpoint.
	EthRPC string
	// LedgerRPC is the payments gateway endpoint (FOC namespace).
	LedgerRPC string
	// ProviderURL is the PDP service URL of the storage provider.
	ProviderURL string
	ProviderID  uint64
	// AuthToken is sent as a bearer token to both RPC endpoints.
	AuthToken string
}

type Storage struct {
	// PersistenceDays is how long uploads are paid for.
	PersistenceDays int
	WithCDN         bool
	// CreationFee is charged with the first data set, in whole tokens.
	CreationFee string
	// Tolerance is the relative difference between balance readings that
	// still counts as agreement.
	Tolerance string
	// ScaleAnomalyPolicy is bypass or reject.
	ScaleAnomalyPolicy  string
	MaxLockupPeriodDays int
}

type Polling struct {
	MinBackoff Duration
	MaxBackoff Duration
	// ConfirmationPolls bounds how long piece confirmation is waited for.
	ConfirmationPolls int
}

type Repo struct {
	// Path holds config.toml and the session datastore.
	Path string
}
