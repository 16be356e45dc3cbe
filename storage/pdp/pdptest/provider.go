// Package pdptest provides an in-memory PDP provider for tests.
package pdptest

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/storage/pdp"
)

// Provider implements the subset of the PDP HTTP API used by the uploader.
// Creation and piece additions become visible after PendingPolls status
// requests.
type Provider struct {
	PendingPolls int
	// IDLagPolls is how many status requests after confirmation still report
	// the creation without a data set id.
	IDLagPolls int
	// NeverConfirm leaves piece additions pending forever.
	NeverConfirm bool
	// FailAddPieces makes the add-pieces request fail.
	FailAddPieces bool
	// FailUploads makes piece uploads fail.
	FailUploads bool

	lk        sync.Mutex
	nextSet   uint64
	nextPiece uint64
	nextTx    uint64
	uploads   map[string]pendingUpload
	pieces    map[string]string // check hash -> piece cid
	created   map[string]*creation
	added     map[string]*addition

	DataSets map[uint64][]string
	Requests []string
}

type pendingUpload struct {
	hash string
	size uint64
}

type creation struct {
	id    uint64
	polls int
}

type addition struct {
	dataSet uint64
	ids     []uint64
	polls   int
}

func NewProvider() *Provider {
	return &Provider{
		nextSet:  1,
		uploads:  map[string]pendingUpload{},
		pieces:   map[string]string{},
		created:  map[string]*creation{},
		added:    map[string]*addition{},
		DataSets: map[uint64][]string{},
	}
}

func (p *Provider) newTx() ethtypes.EthHash {
	p.nextTx++
	var h ethtypes.EthHash
	h[0] = 0xfc
	binary.BigEndian.PutUint64(h[24:], p.nextTx)
	return h
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.lk.Lock()
	defer p.lk.Unlock()

	p.Requests = append(p.Requests, r.Method+" "+r.URL.Path)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/pdp/data-sets":
		tx := p.newTx()
		p.created[tx.String()] = &creation{id: p.nextSet}
		p.DataSets[p.nextSet] = nil
		p.nextSet++
		w.Header().Set("Location", "/pdp/data-sets/created/"+tx.String())
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodGet && len(parts) == 4 && parts[2] == "created":
		c, ok := p.created[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		c.polls++
		confirmed := c.polls > p.PendingPolls
		done := c.polls > p.PendingPolls+p.IDLagPolls
		status := "pending"
		if confirmed {
			status = "confirmed"
		}
		var id *uint64
		if done {
			id = &c.id
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"createMessageHash": parts[3],
			"dataSetCreated":    done,
			"txStatus":          status,
			"dataSetId":         id,
		})

	case r.Method == http.MethodPost && r.URL.Path == "/pdp/piece":
		var req struct {
			Check struct {
				Name string `json:"name"`
				Hash string `json:"hash"`
				Size uint64 `json:"size"`
			} `json:"check"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if c, ok := p.pieces[req.Check.Hash]; ok {
			writeJSON(w, http.StatusOK, map[string]string{"pieceCID": c})
			return
		}
		id := uuid.New().String()
		p.uploads[id] = pendingUpload{hash: req.Check.Hash, size: req.Check.Size}
		w.Header().Set("Location", "/pdp/piece/upload/"+id)
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodPut && len(parts) == 4 && parts[2] == "upload":
		up, ok := p.uploads[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if p.FailUploads {
			http.Error(w, "storage full", http.StatusInsufficientStorage)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil || uint64(len(body)) != up.size {
			http.Error(w, fmt.Sprintf("size mismatch: got %d want %d", len(body), up.size), http.StatusBadRequest)
			return
		}
		piece, err := pdp.PreparePiece(body)
		if err != nil || piece.CheckHash() != up.hash {
			http.Error(w, "piece does not match announced hash", http.StatusBadRequest)
			return
		}
		delete(p.uploads, parts[3])
		p.pieces[up.hash] = piece.CID.String()
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && strings.TrimSuffix(r.URL.Path, "/") == "/pdp/piece":
		c, ok := p.pieces[r.URL.Query().Get("hash")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"pieceCID": c})

	case r.Method == http.MethodPost && len(parts) == 4 && parts[1] == "data-sets" && parts[3] == "pieces":
		p.addPieces(w, r, parts[2])

	case r.Method == http.MethodGet && len(parts) == 6 && parts[3] == "pieces" && parts[4] == "added":
		a, ok := p.added[parts[5]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		a.polls++
		done := !p.NeverConfirm && a.polls > p.PendingPolls
		status := "pending"
		var ids []uint64
		if done {
			status = "confirmed"
			ids = a.ids
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"txHash":            parts[5],
			"txStatus":          status,
			"dataSetId":         a.dataSet,
			"pieceCount":        len(a.ids),
			"confirmedPieceIds": ids,
			"piecesAdded":       done,
		})

	default:
		http.NotFound(w, r)
	}
}

func (p *Provider) addPieces(w http.ResponseWriter, r *http.Request, set string) {
	id, err := strconv.ParseUint(set, 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := p.DataSets[id]; !ok {
		http.NotFound(w, r)
		return
	}
	if p.FailAddPieces {
		http.Error(w, "add pieces rejected", http.StatusInternalServerError)
		return
	}

	var req struct {
		Pieces []struct {
			PieceCID string `json:"pieceCid"`
		} `json:"pieces"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx := p.newTx()
	a := &addition{dataSet: id}
	for _, pc := range req.Pieces {
		p.DataSets[id] = append(p.DataSets[id], pc.PieceCID)
		a.ids = append(a.ids, p.nextPiece)
		p.nextPiece++
	}
	p.added[tx.String()] = a

	w.Header().Set("Location", fmt.Sprintf("/pdp/data-sets/%d/pieces/added/%s", id, tx))
	w.WriteHeader(http.StatusCreated)
}

// Gateway serves data set listings and request signatures for a Provider.
type Gateway struct {
	Provider   *Provider
	ProviderID uint64
	WithCDN    bool
	// Extra is appended to the listing, e.g. terminated data sets.
	Extra []api.ContainerRef
}

var _ api.DataSetLister = (*Gateway)(nil)
var _ api.Signer = (*Gateway)(nil)

func (g *Gateway) ListDataSets(ctx context.Context, account ethtypes.EthAddress) ([]api.ContainerRef, error) {
	g.Provider.lk.Lock()
	defer g.Provider.lk.Unlock()

	var out []api.ContainerRef
	for id := uint64(1); id < g.Provider.nextSet; id++ {
		if _, ok := g.Provider.DataSets[id]; !ok {
			continue
		}
		out = append(out, api.ContainerRef{DataSetID: id, ProviderID: g.ProviderID, Live: true, WithCDN: g.WithCDN})
	}
	return append(out, g.Extra...), nil
}

func (g *Gateway) SignCreateDataSet(ctx context.Context, req api.CreateDataSetRequest) (api.SignedRequest, error) {
	if req.ProviderID != g.ProviderID {
		return api.SignedRequest{}, xerrors.Errorf("unknown provider %d", req.ProviderID)
	}
	return api.SignedRequest{RecordKeeper: req.Payer, ExtraData: ethtypes.EthBytes("create")}, nil
}

func (g *Gateway) SignAddPieces(ctx context.Context, req api.AddPiecesRequest) (api.SignedRequest, error) {
	return api.SignedRequest{ExtraData: ethtypes.EthBytes(fmt.Sprintf("add:%d:%d", req.DataSetID, len(req.Pieces)))}, nil
}
