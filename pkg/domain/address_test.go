package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custos/pkg/domain-errors"
)

func Test_ParseAddress(t *testing.T) {
	t.Run("parses 0x-prefixed hex", func(t *testing.T) {
		addr, err := ParseAddress("0x00000000000000000000000000000000deadbeef")
		require.NoError(t, err)
		assert.Equal(t, "0x00000000000000000000000000000000deadbeef", addr.String())
	})

	t.Run("accepts uppercase prefix and hex", func(t *testing.T) {
		addr, err := ParseAddress("0X00000000000000000000000000000000DEADBEEF")
		require.NoError(t, err)
		assert.Equal(t, "0x00000000000000000000000000000000deadbeef", addr.String())
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseAddress("00000000000000000000000000000000deadbeef")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAddress("0xdeadbeef")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := ParseAddress("0x0000000000000000000000000000000000zzzzzz")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func Test_Address_IsZero(t *testing.T) {
	assert.True(t, ZeroAddress.IsZero())

	addr, err := ParseAddress("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, addr.IsZero())
}

func Test_Address_ValueRoundTrip(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000deadbeef")
	require.NoError(t, err)

	assert.Equal(t, addr, AddressFromValue(addr.Value()))
}

func Test_AddressFromValue(t *testing.T) {
	t.Run("ignores bits above 160", func(t *testing.T) {
		addr, err := ParseAddress("0x00000000000000000000000000000000deadbeef")
		require.NoError(t, err)

		v := new(big.Int).Lsh(big.NewInt(1), 200)
		v.Or(v, addr.Value())
		assert.Equal(t, addr, AddressFromValue(v))
	})

	t.Run("nil value yields zero address", func(t *testing.T) {
		assert.True(t, AddressFromValue(nil).IsZero())
	})
}

func Test_Address_TextRoundTrip(t *testing.T) {
	addr, err := ParseAddress("0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, addr, decoded)
}
