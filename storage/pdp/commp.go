package pdp

import (
	"encoding/hex"

	commcid "github.com/filecoin-project/go-fil-commcid"
	commp "github.com/filecoin-project/go-fil-commp-hashhash"
	"github.com/ipfs/go-cid"
	"golang.org/x/xerrors"
)

// CommPHashName is the multihash name providers expect in piece checks.
const CommPHashName = "sha2-256-trunc254-padded"

// Piece is a payload prepared for upload.
type Piece struct {
	CID cid.Cid
	// Payload is the body sent to the provider. Payloads shorter than the
	// smallest hashable piece are zero padded, which leaves the commitment
	// unchanged.
	Payload    []byte
	CommP      []byte
	PaddedSize uint64
}

func (p *Piece) CheckHash() string {
	return hex.EncodeToString(p.CommP)
}

// PreparePiece computes the piece commitment of data.
func PreparePiece(data []byte) (*Piece, error) {
	if len(data) == 0 {
		return nil, xerrors.New("cannot prepare an empty piece")
	}

	payload := data
	if uint64(len(payload)) < commp.MinPiecePayload {
		payload = make([]byte, commp.MinPiecePayload)
		copy(payload, data)
	}

	cp := &commp.Calc{}
	if _, err := cp.Write(payload); err != nil {
		return nil, xerrors.Errorf("hashing payload: %w", err)
	}
	raw, paddedSize, err := cp.Digest()
	if err != nil {
		return nil, xerrors.Errorf("computing commP: %w", err)
	}

	c, err := commcid.DataCommitmentV1ToCID(raw)
	if err != nil {
		return nil, xerrors.Errorf("converting commP to cid: %w", err)
	}

	return &Piece{CID: c, Payload: payload, CommP: raw, PaddedSize: paddedSize}, nil
}
