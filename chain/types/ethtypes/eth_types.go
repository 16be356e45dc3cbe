package ethtypes

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	mathbig "math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"
	builtintypes "github.com/filecoin-project/go-state-types/builtin"
)

const (
	EthAddressLength = 20
	EthHashLength    = 32
)

const (
	BlockTagEarliest  = "earliest"
	BlockTagPending   = "pending"
	BlockTagLatest    = "latest"
	BlockTagFinalized = "finalized"
	BlockTagSafe      = "safe"
)

type EthUint64 uint64

func (e EthUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Hex())
}

// UnmarshalJSON should be able to parse these types of input:
// 1. a JSON string containing a hex-encoded uint64 starting with 0x
// 2. a JSON string containing an uint64 in decimal
// 3. a string containing an uint64 in decimal
func (e *EthUint64) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		base := 10
		if strings.HasPrefix(s, "0x") {
			base = 16
			s = s[2:]
		}
		parsedInt, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return err
		}
		*e = EthUint64(parsedInt)
		return nil
	} else if eint, err := strconv.ParseUint(string(b), 10, 64); err == nil {
		*e = EthUint64(eint)
		return nil
	}
	return xerrors.Errorf("cannot interpret %s as a hex-encoded uint64, or a number", string(b))
}

// EthUint64FromBytes parses a uint64 from big-endian encoded bytes.
func EthUint64FromBytes(b []byte) (EthUint64, error) {
	if len(b) != 32 {
		return 0, xerrors.Errorf("eth int must be 32 bytes long")
	}
	var zeros [32 - 8]byte
	if !bytes.Equal(b[:len(zeros)], zeros[:]) {
		return 0, xerrors.Errorf("eth int overflows 64 bits")
	}
	return EthUint64(binary.BigEndian.Uint64(b[len(zeros):])), nil
}

func (e EthUint64) Hex() string {
	if e == 0 {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", e)
}

// EthBigInt represents a large integer whose zero value serializes to "0x0".
type EthBigInt big.Int

func (e EthBigInt) String() string {
	if e.Int == nil || e.Int.BitLen() == 0 {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", e.Int)
}

func (e EthBigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *EthBigInt) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	replaced := strings.Replace(s, "0x", "", -1)
	if len(replaced)%2 == 1 {
		replaced = "0" + replaced
	}

	i := new(mathbig.Int)
	if _, ok := i.SetString(replaced, 16); !ok && replaced != "" {
		return xerrors.Errorf("cannot parse %q as a hex integer", s)
	}

	*e = EthBigInt(big.NewFromGo(i))
	return nil
}

// EthBigIntFromWord interprets a 32 byte ABI word as an unsigned integer.
func EthBigIntFromWord(b []byte) (EthBigInt, error) {
	if len(b) != 32 {
		return EthBigInt(big.Zero()), xerrors.Errorf("eth int must be 32 bytes long, got %d", len(b))
	}
	return EthBigInt(big.NewFromGo(new(mathbig.Int).SetBytes(b))), nil
}

// EthBytes represent arbitrary bytes. A nil or empty slice serializes to "0x".
type EthBytes []byte

func (e EthBytes) String() string {
	if len(e) == 0 {
		return "0x"
	}
	return "0x" + hex.EncodeToString(e)
}

func (e EthBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *EthBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	decoded, err := decodeHex(s)
	if err != nil {
		return err
	}

	*e = decoded
	return nil
}

type EthCall struct {
	From     *EthAddress `json:"from"`
	To       *EthAddress `json:"to"`
	Gas      EthUint64   `json:"gas"`
	GasPrice EthBigInt   `json:"gasPrice"`
	Value    EthBigInt   `json:"value"`
	Data     EthBytes    `json:"data"`
}

type EthAddress [EthAddressLength]byte

var maskedIDPrefix = [20 - 8]byte{0xff}

// ParseEthAddress parses an Ethereum address from a hex string.
func ParseEthAddress(s string) (EthAddress, error) {
	b, err := decodeHexString(s, EthAddressLength)
	if err != nil {
		return EthAddress{}, err
	}
	var h EthAddress
	copy(h[EthAddressLength-len(b):], b)
	return h, nil
}

// CastEthAddress interprets bytes as an EthAddress, performing some basic checks.
func CastEthAddress(b []byte) (EthAddress, error) {
	var a EthAddress
	if len(b) != EthAddressLength {
		return EthAddress{}, xerrors.Errorf("cannot parse bytes into an EthAddress: incorrect input length")
	}
	copy(a[:], b[:])
	return a, nil
}

func (ea EthAddress) String() string {
	return "0x" + hex.EncodeToString(ea[:])
}

func (ea EthAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(ea.String())
}

func (ea *EthAddress) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	addr, err := ParseEthAddress(s)
	if err != nil {
		return err
	}
	copy(ea[:], addr[:])
	return nil
}

func (ea EthAddress) isMaskedID() bool {
	return bytes.HasPrefix(ea[:], maskedIDPrefix[:])
}

// ToFilecoinAddress returns the f4 (or f0 for masked ids) form of the address.
func (ea EthAddress) ToFilecoinAddress() (address.Address, error) {
	if ea.isMaskedID() {
		id := binary.BigEndian.Uint64(ea[12:])
		return address.NewIDAddress(id)
	}

	addr, err := address.NewDelegatedAddress(builtintypes.EthereumAddressManagerActorID, ea[:])
	if err != nil {
		return address.Undef, xerrors.Errorf("failed to translate supplied address (%s) into a "+
			"Filecoin f4 address: %w", hex.EncodeToString(ea[:]), err)
	}
	return addr, nil
}

type EthHash [EthHashLength]byte

func (h EthHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *EthHash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	hash, err := ParseEthHash(s)
	if err != nil {
		return err
	}
	copy(h[:], hash[:])
	return nil
}

func (h EthHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func ParseEthHash(s string) (EthHash, error) {
	b, err := decodeHexString(s, EthHashLength)
	if err != nil {
		return EthHash{}, err
	}
	var h EthHash
	copy(h[EthHashLength-len(b):], b)
	return h, nil
}

func decodeHexString(s string, expectedLen int) ([]byte, error) {
	s = handleHexStringPrefix(s)
	if len(s) != expectedLen*2 {
		return nil, xerrors.Errorf("expected hex string length sans prefix %d, got %d", expectedLen*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, xerrors.Errorf("cannot parse hex value: %w", err)
	}
	return b, nil
}

func decodeHex(s string) ([]byte, error) {
	s = handleHexStringPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, xerrors.Errorf("cannot parse hex value: %w", err)
	}
	return b, nil
}

func handleHexStringPrefix(s string) string {
	// Strip the leading 0x or 0X prefix since hex.DecodeString does not support it.
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	// Sometimes clients will omit a leading zero in a byte; pad so we can decode correctly.
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return s
}

type EthBlockNumberOrHash struct {
	PredefinedBlock *string `json:"-"`

	BlockNumber *EthUint64 `json:"blockNumber,omitempty"`
	BlockHash   *EthHash   `json:"blockHash,omitempty"`
}

func (e EthBlockNumberOrHash) String() string {
	if e.PredefinedBlock != nil {
		return *e.PredefinedBlock
	}
	if e.BlockNumber != nil {
		return e.BlockNumber.Hex()
	}
	if e.BlockHash != nil {
		return e.BlockHash.String()
	}
	return "{}"
}

func NewEthBlockNumberOrHashFromPredefined(predefined string) EthBlockNumberOrHash {
	return EthBlockNumberOrHash{
		PredefinedBlock: &predefined,
	}
}

func (e EthBlockNumberOrHash) MarshalJSON() ([]byte, error) {
	if e.PredefinedBlock != nil {
		return json.Marshal(*e.PredefinedBlock)
	}

	type tmpStruct EthBlockNumberOrHash
	return json.Marshal(tmpStruct(e))
}

// UnmarshalJSON replaces the whole value, so a decoded param never mixes a
// tag with a number or hash left over from an earlier decode.
func (e *EthBlockNumberOrHash) UnmarshalJSON(b []byte) error {
	var predefined string
	if err := json.Unmarshal(b, &predefined); err == nil {
		switch predefined {
		case BlockTagEarliest, BlockTagPending, BlockTagLatest, BlockTagFinalized, BlockTagSafe:
			*e = NewEthBlockNumberOrHashFromPredefined(predefined)
			return nil
		}
		var num EthUint64
		if err := num.UnmarshalJSON(b); err != nil {
			return xerrors.Errorf("invalid block param %q: %w", predefined, err)
		}
		*e = EthBlockNumberOrHash{BlockNumber: &num}
		return nil
	}

	type tmpStruct EthBlockNumberOrHash
	var tmp tmpStruct
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	if tmp.BlockNumber != nil && tmp.BlockHash != nil {
		return xerrors.New("cannot specify both blockNumber and blockHash")
	}
	*e = EthBlockNumberOrHash(tmp)
	return nil
}

// EthTxReceipt carries the subset of receipt fields the client inspects.
type EthTxReceipt struct {
	TransactionHash   EthHash     `json:"transactionHash"`
	TransactionIndex  EthUint64   `json:"transactionIndex"`
	BlockHash         EthHash     `json:"blockHash"`
	BlockNumber       EthUint64   `json:"blockNumber"`
	From              EthAddress  `json:"from"`
	To                *EthAddress `json:"to"`
	Status            EthUint64   `json:"status"`
	GasUsed           EthUint64   `json:"gasUsed"`
	EffectiveGasPrice EthBigInt   `json:"effectiveGasPrice"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *EthTxReceipt) Succeeded() bool {
	return r.Status == 1
}

// EthFunctionSelector returns the first four bytes of the keccak256 hash of a
// solidity function signature, e.g. "balanceOf(address)".
func EthFunctionSelector(signature string) []byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	return hasher.Sum(nil)[:4]
}

// EthAddressWord left pads an address into a 32 byte ABI word.
func EthAddressWord(ea EthAddress) []byte {
	word := make([]byte, 32)
	copy(word[32-EthAddressLength:], ea[:])
	return word
}
