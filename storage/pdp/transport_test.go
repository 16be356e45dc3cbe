package pdp_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/foc-uploader/api"
	"github.com/filecoin-project/foc-uploader/chain/types/ethtypes"
	"github.com/filecoin-project/foc-uploader/storage/pdp"
	"github.com/filecoin-project/foc-uploader/storage/pdp/pdptest"
)

var payer = ethtypes.EthAddress{0x01, 0x18, 0x4f}

func newTransport(t *testing.T, prov *pdptest.Provider, polls int) (*pdp.Transport, *pdptest.Gateway) {
	srv := httptest.NewServer(prov)
	t.Cleanup(srv.Close)

	gw := &pdptest.Gateway{Provider: prov, ProviderID: 7}
	tr := pdp.NewTransport(pdp.Config{
		ServiceURL:        srv.URL + "/",
		ProviderID:        7,
		Payer:             payer,
		MinBackoff:        time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		ConfirmationPolls: polls,
	}, gw, gw)
	return tr, gw
}

func TestCreateContainer(t *testing.T) {
	ctx := context.Background()
	prov := pdptest.NewProvider()
	prov.PendingPolls = 2
	tr, gw := newTransport(t, prov, 10)

	refs, err := tr.ListContainers(ctx, payer)
	require.NoError(t, err)
	require.Empty(t, refs)

	var events []string
	ref, err := tr.CreateContainer(ctx, api.CreateCallbacks{
		OnSubmitted:        func(ethtypes.EthHash) { events = append(events, "submitted") },
		OnChainConfirmed:   func(uint64) { events = append(events, "chain") },
		OnServerConfirmed:  func(uint64) { events = append(events, "server") },
		OnProviderSelected: func(uint64) { events = append(events, "provider") },
	})
	require.NoError(t, err)
	require.Equal(t, []string{"submitted", "chain", "server", "provider"}, events)
	require.EqualValues(t, 1, ref.DataSetID)
	require.EqualValues(t, 7, ref.ProviderID)
	require.True(t, ref.Live)

	gw.Extra = []api.ContainerRef{
		{DataSetID: 99, ProviderID: 8, Live: true},
		{DataSetID: 98, ProviderID: 7, Live: true, WithCDN: true},
	}
	refs, err = tr.ListContainers(ctx, payer)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.EqualValues(t, 1, refs[0].DataSetID)
}

func TestCreateContainerIDLag(t *testing.T) {
	ctx := context.Background()
	prov := pdptest.NewProvider()
	prov.PendingPolls = 1
	prov.IDLagPolls = 3
	tr, _ := newTransport(t, prov, 10)

	var chainIDs, serverIDs []uint64
	ref, err := tr.CreateContainer(ctx, api.CreateCallbacks{
		OnChainConfirmed:  func(id uint64) { chainIDs = append(chainIDs, id) },
		OnServerConfirmed: func(id uint64) { serverIDs = append(serverIDs, id) },
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, ref.DataSetID)
	// confirmed without an id is not reported as data set 0
	require.Equal(t, []uint64{1}, chainIDs)
	require.Equal(t, []uint64{1}, serverIDs)
}

func TestUploadConfirmed(t *testing.T) {
	ctx := context.Background()
	prov := pdptest.NewProvider()
	prov.PendingPolls = 1
	tr, _ := newTransport(t, prov, 10)

	ref, err := tr.CreateContainer(ctx, api.CreateCallbacks{})
	require.NoError(t, err)

	var (
		uploaded cid.Cid
		tx       *ethtypes.EthHash
		ids      []uint64
	)
	res, err := tr.Upload(ctx, ref, []byte("hello"), api.UploadCallbacks{
		OnUploadComplete: func(c cid.Cid) { uploaded = c },
		OnPieceAdded:     func(h ethtypes.EthHash) { tx = &h },
		OnPieceConfirmed: func(i []uint64) { ids = i },
	})
	require.NoError(t, err)
	require.True(t, res.PieceCID.Defined())
	require.Equal(t, res.PieceCID, uploaded)
	require.NotNil(t, tx)
	require.Equal(t, []uint64{0}, ids)
	require.Equal(t, []string{res.PieceCID.String()}, prov.DataSets[ref.DataSetID])

	// the provider already holds the piece, so the bytes are not sent again
	before := len(prov.Requests)
	_, err = tr.Upload(ctx, ref, []byte("hello"), api.UploadCallbacks{})
	require.NoError(t, err)
	for _, r := range prov.Requests[before:] {
		require.NotContains(t, r, "PUT")
	}
}

func TestUploadUnconfirmed(t *testing.T) {
	ctx := context.Background()
	prov := pdptest.NewProvider()
	prov.NeverConfirm = true
	tr, _ := newTransport(t, prov, 3)

	ref, err := tr.CreateContainer(ctx, api.CreateCallbacks{})
	require.NoError(t, err)

	confirmed := false
	res, err := tr.Upload(ctx, ref, []byte("hello"), api.UploadCallbacks{
		OnPieceConfirmed: func([]uint64) { confirmed = true },
	})
	require.NoError(t, err)
	require.True(t, res.PieceCID.Defined())
	require.False(t, confirmed)
}

func TestUploadAddPiecesFails(t *testing.T) {
	ctx := context.Background()
	prov := pdptest.NewProvider()
	tr, _ := newTransport(t, prov, 3)

	ref, err := tr.CreateContainer(ctx, api.CreateCallbacks{})
	require.NoError(t, err)
	prov.FailAddPieces = true

	var uploaded cid.Cid
	res, err := tr.Upload(ctx, ref, []byte("hello"), api.UploadCallbacks{
		OnUploadComplete: func(c cid.Cid) { uploaded = c },
	})
	require.Error(t, err)
	require.True(t, uploaded.Defined())
	require.Equal(t, uploaded, res.PieceCID)
}

func TestUploadRejected(t *testing.T) {
	ctx := context.Background()
	prov := pdptest.NewProvider()
	tr, _ := newTransport(t, prov, 3)

	ref, err := tr.CreateContainer(ctx, api.CreateCallbacks{})
	require.NoError(t, err)
	prov.FailUploads = true

	res, err := tr.Upload(ctx, ref, []byte("hello"), api.UploadCallbacks{})
	require.Error(t, err)
	require.False(t, res.PieceCID.Defined())
}

func TestUploadCancelled(t *testing.T) {
	prov := pdptest.NewProvider()
	tr, _ := newTransport(t, prov, 3)

	ref, err := tr.CreateContainer(context.Background(), api.CreateCallbacks{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Upload(ctx, ref, []byte("hello"), api.UploadCallbacks{})
	require.ErrorIs(t, err, context.Canceled)
}
