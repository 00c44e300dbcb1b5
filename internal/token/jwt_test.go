package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
)

var tokenService = NewService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var callerAddr = domain.Address{0xaa, 0xbb}
var expiresIn = time.Hour

func Test_GenerateToken(t *testing.T) {
	token, err := tokenService.GenerateToken(callerAddr, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	addr, err := tokenService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, callerAddr, addr)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := tokenService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := tokenService.GenerateToken(callerAddr, -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "token has expired", dErrors.MessageOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewService("different-signing-key", "test-issuer", "test-audience")
	token, err := other.GenerateToken(callerAddr, expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ZeroAddress(t *testing.T) {
	token, err := tokenService.GenerateToken(domain.ZeroAddress, expiresIn)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_RejectsUnsignedToken(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Address: callerAddr.String()})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokenService.ValidateToken(raw)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
