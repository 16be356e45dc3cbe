package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	ds "github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/foc-uploader/api"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))

	recs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 0)

	_, err = store.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrSessionNotFound)

	now := time.Now()
	first := &Record{ID: uuid.New(), State: api.StageFailed, PayloadSize: 3, Error: "boom", Started: now.Add(-time.Minute)}
	second := &Record{ID: uuid.New(), State: api.StageSucceeded, PayloadSize: 5, Started: now,
		Progress: []api.ProgressState{{Stage: api.StageSucceeded, Percent: 100, Message: "done"}}}

	require.NoError(t, store.Put(ctx, second))
	require.NoError(t, store.Put(ctx, first))

	got, err := store.Get(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, api.StageSucceeded, got.State)
	require.Equal(t, 100, got.Progress[0].Percent)

	recs, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, first.ID, recs[0].ID)
	require.Equal(t, second.ID, recs[1].ID)
	require.Equal(t, "boom", recs[0].Error)

	// records live under their own namespace
	raw, err := store.ds.Has(ctx, dskeyForSession(first.ID))
	require.NoError(t, err)
	require.True(t, raw)
}
