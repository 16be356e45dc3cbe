package pdp

import (
	"bytes"
	"testing"

	commcid "github.com/filecoin-project/go-fil-commcid"
	commp "github.com/filecoin-project/go-fil-commp-hashhash"
	"github.com/stretchr/testify/require"
)

func TestPreparePiece(t *testing.T) {
	p, err := PreparePiece([]byte("hello"))
	require.NoError(t, err)
	require.Len(t, p.Payload, int(commp.MinPiecePayload))
	require.Equal(t, []byte("hello"), p.Payload[:5])
	require.EqualValues(t, 128, p.PaddedSize)
	require.Len(t, p.CheckHash(), 64)

	raw, err := commcid.CIDToPieceCommitmentV1(p.CID)
	require.NoError(t, err)
	require.Equal(t, p.CommP, raw)

	again, err := PreparePiece([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, p.CID, again.CID)

	other, err := PreparePiece([]byte("hello!"))
	require.NoError(t, err)
	require.NotEqual(t, p.CID, other.CID)
}

func TestPreparePieceLarge(t *testing.T) {
	data := bytes.Repeat([]byte{0x5a}, 1<<16)
	p, err := PreparePiece(data)
	require.NoError(t, err)
	require.Len(t, p.Payload, len(data))
	require.EqualValues(t, 1<<17, p.PaddedSize)
}

func TestPreparePieceEmpty(t *testing.T) {
	_, err := PreparePiece(nil)
	require.Error(t, err)
}

func TestProgressReader(t *testing.T) {
	data := bytes.Repeat([]byte{1}, int(3*progressChunk+10))
	var seen []int64
	r := newProgressReader(bytes.NewReader(data), int64(len(data)), func(written, total int64) {
		require.EqualValues(t, len(data), total)
		seen = append(seen, written)
	})

	buf := make([]byte, 1000)
	for {
		if _, err := r.Read(buf); err != nil {
			break
		}
	}
	require.Equal(t, []int64{progressChunk, 2 * progressChunk, 3 * progressChunk}, seen)
}
