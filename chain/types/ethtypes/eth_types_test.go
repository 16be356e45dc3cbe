package ethtypes

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"
)

func TestEthAddr(t *testing.T) {
	testcases := []string{
		strings.ToLower(`"0xd4c5fb16488Aa48081296299d54b0c648C9333dA"`),
		strings.ToLower(`"0x2C2EC67e3e1FeA8e4A39601cB3A3Cd44f5fa830d"`),
		strings.ToLower(`"0x01184F793982104363F9a8a5845743f452dE0586"`),
	}

	for _, addr := range testcases {
		var a EthAddress
		err := a.UnmarshalJSON([]byte(addr))

		require.Nil(t, err)
		require.Equal(t, a.String(), strings.Replace(addr, `"`, "", -1))
	}
}

func TestEthAddrToFilecoin(t *testing.T) {
	ea, err := ParseEthAddress("0xd4c5fb16488Aa48081296299d54b0c648C9333dA")
	require.NoError(t, err)

	fa, err := ea.ToFilecoinAddress()
	require.NoError(t, err)
	require.Equal(t, address.Delegated, fa.Protocol())

	id := EthAddress{0xff}
	id[19] = 101
	fa, err = id.ToFilecoinAddress()
	require.NoError(t, err)
	require.Equal(t, "f0101", fa.String())
}

func TestFunctionSelector(t *testing.T) {
	require.Equal(t, "70a08231", hex.EncodeToString(EthFunctionSelector("balanceOf(address)")))
	require.Equal(t, "313ce567", hex.EncodeToString(EthFunctionSelector("decimals()")))
}

func TestEthBigInt(t *testing.T) {
	var b EthBigInt
	require.NoError(t, json.Unmarshal([]byte(`"0x1bc16d674ec80000"`), &b))
	require.Equal(t, "2000000000000000000", big.Int(b).String())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, `"0x1bc16d674ec80000"`, string(out))

	word := make([]byte, 32)
	word[31] = 18
	b, err = EthBigIntFromWord(word)
	require.NoError(t, err)
	require.EqualValues(t, 18, big.Int(b).Int64())

	_, err = EthBigIntFromWord(word[:31])
	require.Error(t, err)
}

func TestBlockParam(t *testing.T) {
	out, err := json.Marshal(NewEthBlockNumberOrHashFromPredefined(BlockTagLatest))
	require.NoError(t, err)
	require.Equal(t, `"latest"`, string(out))

	var p EthBlockNumberOrHash
	require.NoError(t, json.Unmarshal([]byte(`"latest"`), &p))
	require.Equal(t, BlockTagLatest, p.String())

	// decoding into a value that already holds a tag replaces it
	require.NoError(t, json.Unmarshal([]byte(`"0x10"`), &p))
	require.Nil(t, p.PredefinedBlock)
	require.Equal(t, "0x10", p.String())

	out, err = json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"blockNumber":"0x10"}`, string(out))

	hash := `"0x` + strings.Repeat("cd", 32) + `"`
	require.NoError(t, json.Unmarshal([]byte(`{"blockHash":`+hash+`}`), &p))
	require.Nil(t, p.PredefinedBlock)
	require.Nil(t, p.BlockNumber)
	require.NotNil(t, p.BlockHash)

	require.NoError(t, json.Unmarshal([]byte(`"latest"`), &p))
	require.Nil(t, p.BlockHash)
	require.Equal(t, BlockTagLatest, p.String())

	require.Error(t, json.Unmarshal([]byte(`{"blockNumber":"0x1","blockHash":`+hash+`}`), &p))
}

func TestReceipt(t *testing.T) {
	data := `{"transactionHash":"0x` + strings.Repeat("ab", 32) + `","blockNumber":"0x5","status":"0x1","from":"0x01184f793982104363f9a8a5845743f452de0586"}`

	var r EthTxReceipt
	require.NoError(t, json.Unmarshal([]byte(data), &r))
	require.True(t, r.Succeeded())
	require.EqualValues(t, 5, r.BlockNumber)
}

func TestEthBytes(t *testing.T) {
	var b EthBytes
	require.NoError(t, json.Unmarshal([]byte(`"0xabc"`), &b))
	require.Equal(t, EthBytes{0x0a, 0xbc}, b)
	require.Equal(t, "0x0abc", b.String())

	require.NoError(t, json.Unmarshal([]byte(`"0x"`), &b))
	require.Empty(t, b)
	require.Equal(t, "0x", b.String())

	require.Error(t, json.Unmarshal([]byte(`"0xzz"`), &b))
}
