package domain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custos/pkg/domain-errors"
)

func Test_KeyFromLabel(t *testing.T) {
	t.Run("right-pads short labels with zero bytes", func(t *testing.T) {
		k := KeyFromLabel("isBlacklisted")
		assert.Equal(t, byte('i'), k[0])
		assert.Equal(t, byte(0), k[KeyLen-1])
		assert.Equal(t, "isBlacklisted", k.String())
	})

	t.Run("distinct labels yield distinct keys", func(t *testing.T) {
		assert.NotEqual(t, KeyIsBlacklisted, KeyIsDepositAddress)
		assert.NotEqual(t, KeyHasPassedKYCAML, KeyCanBurn)
	})
}

func Test_ParseKey(t *testing.T) {
	t.Run("parses plain label", func(t *testing.T) {
		k, err := ParseKey("isBlacklisted")
		require.NoError(t, err)
		assert.Equal(t, KeyIsBlacklisted, k)
	})

	t.Run("parses full-width hex", func(t *testing.T) {
		hexKey := "0x" + strings.Repeat("ab", KeyLen)
		k, err := ParseKey(hexKey)
		require.NoError(t, err)
		assert.Equal(t, hexKey, k.String())
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseKey("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects short hex", func(t *testing.T) {
		_, err := ParseKey("0xabcd")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects oversized label", func(t *testing.T) {
		_, err := ParseKey(strings.Repeat("x", KeyLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func Test_ParseNotes(t *testing.T) {
	t.Run("empty input yields zero notes", func(t *testing.T) {
		n, err := ParseNotes("")
		require.NoError(t, err)
		assert.Equal(t, ZeroNotes, n)
	})

	t.Run("parses plain string", func(t *testing.T) {
		n, err := ParseNotes("batch-2026-08")
		require.NoError(t, err)
		assert.NotEqual(t, ZeroNotes, n)
	})

	t.Run("rejects oversized notes", func(t *testing.T) {
		_, err := ParseNotes(strings.Repeat("n", KeyLen+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func Test_ValidateValue(t *testing.T) {
	maxValue := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), MaxValueBits), big.NewInt(1))

	t.Run("accepts zero and max", func(t *testing.T) {
		assert.NoError(t, ValidateValue(big.NewInt(0)))
		assert.NoError(t, ValidateValue(maxValue))
	})

	t.Run("rejects nil", func(t *testing.T) {
		err := ValidateValue(nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects negative", func(t *testing.T) {
		err := ValidateValue(big.NewInt(-1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects 257-bit value", func(t *testing.T) {
		over := new(big.Int).Add(maxValue, big.NewInt(1))
		err := ValidateValue(over)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
