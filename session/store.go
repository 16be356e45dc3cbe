package session

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
)

var ErrSessionNotFound = xerrors.New("session not found")

// Record is the persisted history of one session.
type Record struct {
	ID          uuid.UUID
	State       api.Stage
	PayloadSize int
	Progress    []api.ProgressState
	Outcome     *api.UploadOutcome `json:",omitempty"`
	Error       string             `json:",omitempty"`
	Started     time.Time
	Finished    time.Time
}

// Store keeps session records in a datastore under /sessions.
type Store struct {
	ds datastore.Batching
}

func NewStore(ds datastore.Batching) *Store {
	return &Store{ds: namespace.Wrap(ds, datastore.NewKey("/sessions"))}
}

func dskeyForSession(id uuid.UUID) datastore.Key {
	return datastore.NewKey(id.String())
}

func (s *Store) Put(ctx context.Context, rec *Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return xerrors.Errorf("encoding session %s: %w", rec.ID, err)
	}
	return s.ds.Put(ctx, dskeyForSession(rec.ID), b)
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	b, err := s.ds.Get(ctx, dskeyForSession(id))
	if xerrors.Is(err, datastore.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, xerrors.Errorf("decoding session %s: %w", id, err)
	}
	return &rec, nil
}

// List returns all records, oldest first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	res, err := s.ds.Query(ctx, dsq.Query{})
	if err != nil {
		return nil, err
	}
	entries, err := res.Rest()
	if err != nil {
		return nil, err
	}

	out := make([]*Record, 0, len(entries))
	for _, e := range entries {
		var rec Record
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			return nil, xerrors.Errorf("decoding session %s: %w", e.Key, err)
		}
		out = append(out, &rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out, nil
}
