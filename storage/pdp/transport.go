package pdp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/jpillora/backoff"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
)

var log = logging.Logger("pdp")

type Config struct {
	// ServiceURL is the provider's PDP endpoint, e.g. https://sp.example.com
	ServiceURL string
	ProviderID uint64
	// Payer is the account data sets are created for.
	Payer   ethtypes.EthAddress
	WithCDN bool
	Auth    http.Header

	MinBackoff time.Duration
	MaxBackoff time.Duration
	// ConfirmationPolls bounds how often piece confirmation is polled before
	// the upload is returned unconfirmed.
	ConfirmationPolls int
}

// Transport talks to a single PDP storage provider over HTTP. Listing and
// signing go through the ledger gateway.
type Transport struct {
	cfg    Config
	lister api.DataSetLister
	signer api.Signer
	client *http.Client
}

var _ api.StorageTransport = (*Transport)(nil)

func NewTransport(cfg Config, lister api.DataSetLister, signer api.Signer) *Transport {
	cfg.ServiceURL = strings.TrimRight(cfg.ServiceURL, "/")
	if cfg.MinBackoff == 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Transport{cfg: cfg, lister: lister, signer: signer, client: http.DefaultClient}
}

func (t *Transport) newBackoff() *backoff.Backoff {
	return &backoff.Backoff{Min: t.cfg.MinBackoff, Max: t.cfg.MaxBackoff, Factor: 1.5, Jitter: true}
}

// ListContainers returns the account's data sets hosted by this provider.
func (t *Transport) ListContainers(ctx context.Context, account ethtypes.EthAddress) ([]api.ContainerRef, error) {
	refs, err := t.lister.ListDataSets(ctx, account)
	if err != nil {
		return nil, err
	}
	return lo.Filter(refs, func(r api.ContainerRef, _ int) bool {
		return r.ProviderID == t.cfg.ProviderID && r.WithCDN == t.cfg.WithCDN
	}), nil
}

type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Body)
}

// do sends a request and decodes a JSON response into out when out is not
// nil. p is either a path on the provider or an absolute URL it handed out.
// It returns the response Location header.
func (t *Transport) do(ctx context.Context, method, p string, body io.Reader, size int64, contentType string, out interface{}, okCodes ...int) (int, string, error) {
	u := p
	if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") {
		u = t.cfg.ServiceURL + p
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, "", xerrors.Errorf("request: %w", err)
	}
	if t.cfg.Auth != nil {
		req.Header = t.cfg.Auth.Clone()
	}
	if body != nil {
		req.ContentLength = size
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, "", xerrors.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() // nolint

	if !lo.Contains(okCodes, resp.StatusCode) {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, "", &httpError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, "", xerrors.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, resp.Header.Get("Location"), nil
}

func (t *Transport) postJSON(ctx context.Context, p string, in, out interface{}, okCodes ...int) (int, string, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return 0, "", xerrors.Errorf("encoding request: %w", err)
	}
	return t.do(ctx, http.MethodPost, p, bytes.NewReader(b), int64(len(b)), "application/json", out, okCodes...)
}

func (t *Transport) getJSON(ctx context.Context, p string, out interface{}) (int, error) {
	code, _, err := t.do(ctx, http.MethodGet, p, nil, 0, "", out, http.StatusOK)
	return code, err
}

// txFromLocation extracts the transaction hash from locations such as
// /pdp/data-sets/created/0xabc.
func txFromLocation(loc string) (ethtypes.EthHash, error) {
	if loc == "" {
		return ethtypes.EthHash{}, xerrors.New("provider response has no Location header")
	}
	return ethtypes.ParseEthHash(path.Base(loc))
}

func (t *Transport) sleep(ctx context.Context, b *backoff.Backoff) error {
	timer := time.NewTimer(b.Duration())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
