package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "0x8f1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8"

func TestToTokenUnits(t *testing.T) {
	assert.Equal(t, "1500000000000000000", ToTokenUnits(1.5, WLDDecimals).String())
	assert.Equal(t, "100000000000000000", ToTokenUnits(0.1, WLDDecimals).String())
	assert.Equal(t, "1234567", ToTokenUnits(1.234567, 6).String())
	assert.Equal(t, "0", ToTokenUnits(0, WLDDecimals).String())
	assert.Equal(t, "0", ToTokenUnits(-3, WLDDecimals).String())

	assert.Equal(t, 1.5, FromTokenUnits(ToTokenUnits(1.5, WLDDecimals), WLDDecimals))
	assert.Zero(t, FromTokenUnits(nil, WLDDecimals))
}

func TestIsTxHash(t *testing.T) {
	assert.True(t, IsTxHash(testHash))
	assert.True(t, IsTxHash(" "+testHash+" "))
	assert.False(t, IsTxHash("0x1234"))
	assert.False(t, IsTxHash(testHash[2:]))
	assert.False(t, IsTxHash("0x"+"zz"+testHash[4:]))
}

type fakeReader struct {
	calls    int
	notFound int
	receipt  *types.Receipt
	err      error
}

func (f *fakeReader) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.notFound {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func TestReceiptFetcher_RetriesUntilMined(t *testing.T) {
	reader := &fakeReader{
		notFound: 2,
		receipt:  &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42)},
	}
	f := NewReceiptFetcherWithReader(reader, 3, time.Millisecond)

	r, err := f.Fetch(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, 3, reader.calls)
	assert.True(t, r.Success)
	assert.EqualValues(t, 42, r.BlockNumber)
	assert.Equal(t, common.HexToHash(testHash).Hex(), r.TxHash)
}

func TestReceiptFetcher_Pending(t *testing.T) {
	reader := &fakeReader{notFound: 10}
	f := NewReceiptFetcherWithReader(reader, 2, time.Millisecond)

	_, err := f.Fetch(context.Background(), testHash)
	assert.ErrorIs(t, err, ErrReceiptPending)
	assert.Equal(t, 2, reader.calls)
}

func TestReceiptFetcher_Errors(t *testing.T) {
	boom := errors.New("rpc down")
	f := NewReceiptFetcherWithReader(&fakeReader{err: boom}, 3, time.Millisecond)
	_, err := f.Fetch(context.Background(), testHash)
	assert.ErrorIs(t, err, boom)

	_, err = f.Fetch(context.Background(), "not-a-hash")
	assert.Error(t, err)

	reverted := NewReceiptFetcherWithReader(&fakeReader{receipt: &types.Receipt{Status: types.ReceiptStatusFailed}}, 1, 0)
	r, err := reverted.Fetch(context.Background(), testHash)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Zero(t, r.BlockNumber)

	_, err = NewReceiptFetcher("").Fetch(context.Background(), testHash)
	assert.Error(t, err)
}
