package cli

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/ipfs/go-datastore"
	levelds "github.com/ipfs/go-ds-leveldb"
	ldbopts "github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/api/client"
	"github.com/filecoin-project/foc-uploader/build"
	"github.com/filecoin-project/foc-uploader/chain/ethchain"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/funds"
	"github.com/filecoin-project/foc-uploader/node/config"
	"github.com/filecoin-project/foc-uploader/paymentmgr"
	"github.com/filecoin-project/foc-uploader/session"
	"github.com/filecoin-project/foc-uploader/storage/pdp"
)

// LoadConfig reads the config selected by the --config and --repo flags.
func LoadConfig(cctx *cli.Context) (*config.Config, error) {
	repo := cctx.String(FlagRepo.Name)
	if repo == "" {
		repo = config.DefaultRepoPath
	}

	path := cctx.String(FlagConfig.Name)
	if path == "" {
		path = filepath.Join(repo, "config.toml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, xerrors.Errorf("loading config %s: %w", path, err)
	}
	if cctx.IsSet(FlagRepo.Name) {
		cfg.Repo.Path = repo
	}
	return cfg, nil
}

// Deps are the connections a command works with. Close releases them.
type Deps struct {
	Config  *config.Config
	Account ethtypes.EthAddress

	Ledger    *client.LedgerRPC
	Eth       api.EthNode
	Chain     *ethchain.Chain
	Transport *pdp.Transport

	closers []func() error
}

func authHeader(cfg *config.Config) http.Header {
	if cfg.Endpoints.AuthToken == "" {
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + cfg.Endpoints.AuthToken}}
}

// GetDeps connects to the ledger gateway and the Eth RPC endpoint.
func GetDeps(cctx *cli.Context) (*Deps, error) {
	ctx := ReqContext(cctx)

	cfg, err := LoadConfig(cctx)
	if err != nil {
		return nil, err
	}
	acct, err := cfg.Account()
	if err != nil {
		return nil, err
	}

	d := &Deps{Config: cfg, Account: acct}
	header := authHeader(cfg)

	ledger, lcloser, err := client.NewLedgerRPC(ctx, cfg.Endpoints.LedgerRPC, header)
	if err != nil {
		return nil, xerrors.Errorf("connecting to ledger gateway %s: %w", cfg.Endpoints.LedgerRPC, err)
	}
	d.Ledger = ledger
	d.closers = append(d.closers, func() error { lcloser(); return nil })

	eth, ecloser, err := client.NewEthRPC(ctx, cfg.Endpoints.EthRPC, header)
	if err != nil {
		_ = d.Close()
		return nil, xerrors.Errorf("connecting to eth rpc %s: %w", cfg.Endpoints.EthRPC, err)
	}
	d.Eth = eth
	d.closers = append(d.closers, func() error { ecloser(); return nil })

	minB, maxB := time.Duration(cfg.Polling.MinBackoff), time.Duration(cfg.Polling.MaxBackoff)
	d.Chain = ethchain.New(eth, minB, maxB)

	var auth http.Header
	if header != nil {
		auth = header.Clone()
	}
	d.Transport = pdp.NewTransport(pdp.Config{
		ServiceURL:        cfg.Endpoints.ProviderURL,
		ProviderID:        cfg.Endpoints.ProviderID,
		Payer:             acct,
		WithCDN:           cfg.Storage.WithCDN,
		Auth:              auth,
		MinBackoff:        minB,
		MaxBackoff:        maxB,
		ConfirmationPolls: cfg.Polling.ConfirmationPolls,
	}, ledger, ledger)

	return d, nil
}

// OpenSessionStore opens the on-disk session history.
func OpenSessionStore(cfg *config.Config) (*session.Store, func() error, error) {
	path, err := cfg.DatastorePath()
	if err != nil {
		return nil, nil, err
	}
	ds, err := levelDs(path)
	if err != nil {
		return nil, nil, xerrors.Errorf("opening datastore %s: %w", path, err)
	}
	return session.NewStore(ds), ds.Close, nil
}

func levelDs(path string) (datastore.Batching, error) {
	return levelds.NewDatastore(path, &levelds.Options{
		Compression: ldbopts.NoCompression,
		NoSync:      false,
		Strict:      ldbopts.StrictAll,
	})
}

// AddCloser registers fn to run on Close.
func (d *Deps) AddCloser(fn func() error) {
	d.closers = append(d.closers, fn)
}

func (d *Deps) Close() error {
	var err error
	for i := len(d.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, d.closers[i]())
	}
	d.closers = nil
	return err
}

// PreflightConfig builds the preflight settings from the config.
func (d *Deps) PreflightConfig() (funds.PreflightConfig, error) {
	cfg := d.Config
	token, err := cfg.Token()
	if err != nil {
		return funds.PreflightConfig{}, err
	}
	fee, err := cfg.CreationFee()
	if err != nil {
		return funds.PreflightConfig{}, err
	}
	tol, err := cfg.Tolerance()
	if err != nil {
		return funds.PreflightConfig{}, err
	}
	policy, err := funds.ParseScaleAnomalyPolicy(cfg.Storage.ScaleAnomalyPolicy)
	if err != nil {
		return funds.PreflightConfig{}, err
	}
	return funds.PreflightConfig{
		Account:      d.Account,
		Asset:        token,
		Decimals:     build.TokenDecimals,
		CreationFee:  fee,
		Tolerance:    tol,
		ScaleAnomaly: policy,
	}, nil
}

// SessionConfig builds the upload session settings for a paid period of
// days.
func (d *Deps) SessionConfig(days int, withCDN bool) (session.Config, error) {
	cfg := d.Config
	pcfg, err := d.PreflightConfig()
	if err != nil {
		return session.Config{}, err
	}
	service, err := cfg.Service()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Account:   d.Account,
		ChainID:   cfg.Network.ChainID,
		Duration:  funds.DurationForDays(days, withCDN),
		Preflight: pcfg,
		Payment: paymentmgr.Config{
			Token:           pcfg.Asset,
			Operator:        service,
			MaxLockupPeriod: cfg.MaxLockupPeriod(),
		},
	}, nil
}

// SessionDeps wires the session collaborators; store may be nil.
func (d *Deps) SessionDeps(store *session.Store) session.Deps {
	return session.Deps{
		Ledger:    d.Ledger,
		Chain:     d.Chain,
		Identity:  d.Chain,
		Waiter:    d.Chain,
		Transport: d.Transport,
		Store:     store,
	}
}
