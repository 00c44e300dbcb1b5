package authz

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/suite"

	"custos/internal/registry/models"
	"custos/internal/registry/store"
	"custos/internal/resolver"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
)

type AuthzEngineSuite struct {
	suite.Suite
	store  *store.InMemoryStore
	engine *Engine
	ctx    context.Context

	investor domain.Address
	sender   domain.Address
}

func TestAuthzEngineSuite(t *testing.T) {
	suite.Run(t, new(AuthzEngineSuite))
}

func (s *AuthzEngineSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *AuthzEngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.engine = NewEngine(s.store, resolver.New(s.store))
	s.investor = domain.Address{0x01}
	s.sender = domain.Address{0x02}
}

func (s *AuthzEngineSuite) set(subject domain.Address, key domain.AttributeKey, value int64) {
	_, _, err := s.store.Put(s.ctx, subject, key, models.AttributeRecord{Value: big.NewInt(value)})
	s.Require().NoError(err)
}

func (s *AuthzEngineSuite) mapDeposit(bucket, canonical domain.Address) {
	_, _, err := s.store.Put(s.ctx, bucket, domain.KeyIsDepositAddress, models.AttributeRecord{
		Value: canonical.Value(),
	})
	s.Require().NoError(err)
}

// =============================================================================
// Transfer Tests
// =============================================================================

func (s *AuthzEngineSuite) TestCanTransfer() {
	s.Run("clean parties pass without any attestation", func() {
		auth, err := s.engine.CanTransfer(s.ctx, s.sender, s.investor)
		s.Require().NoError(err)
		s.Equal(s.investor, auth.ResolvedTo)
		s.False(auth.ToRegisteredContract)
	})

	s.Run("blacklisted sender is rejected", func() {
		s.set(s.sender, domain.KeyIsBlacklisted, 1)
		_, err := s.engine.CanTransfer(s.ctx, s.sender, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))
	})

	s.Run("blacklist on the resolved recipient is decisive", func() {
		canonical := domain.Address{0xcc}
		deposit := domain.Address{0: 0x12, 19: 0x07}
		s.mapDeposit(resolver.DepositBucket(deposit), canonical)
		s.set(canonical, domain.KeyIsBlacklisted, 1)

		_, err := s.engine.CanTransfer(s.ctx, s.sender, deposit)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))
	})

	s.Run("registered-contract flag reflects the resolved recipient", func() {
		canonical := domain.Address{0xcc}
		deposit := domain.Address{0: 0x12, 19: 0x07}
		s.mapDeposit(resolver.DepositBucket(deposit), canonical)
		s.set(canonical, domain.KeyIsRegisteredContract, 1)

		auth, err := s.engine.CanTransfer(s.ctx, s.sender, deposit)
		s.Require().NoError(err)
		s.Equal(canonical, auth.ResolvedTo)
		s.True(auth.ToRegisteredContract)
	})

	s.Run("blacklist on the literal deposit address does not screen", func() {
		// Screening runs on the resolved recipient only.
		canonical := domain.Address{0xcc}
		deposit := domain.Address{0: 0x12, 19: 0x07}
		s.mapDeposit(resolver.DepositBucket(deposit), canonical)
		s.set(deposit, domain.KeyIsBlacklisted, 1)

		auth, err := s.engine.CanTransfer(s.ctx, s.sender, deposit)
		s.Require().NoError(err)
		s.Equal(canonical, auth.ResolvedTo)
	})
}

func (s *AuthzEngineSuite) TestCanTransferFrom() {
	spender := domain.Address{0x03}

	s.Run("screens the spender before the holder", func() {
		s.set(spender, domain.KeyIsBlacklisted, 1)
		_, err := s.engine.CanTransferFrom(s.ctx, spender, s.sender, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))
	})

	s.Run("clean spender defers to the transfer screen", func() {
		s.set(s.sender, domain.KeyIsBlacklisted, 1)
		_, err := s.engine.CanTransferFrom(s.ctx, spender, s.sender, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))

		_, _, err2 := s.store.Put(s.ctx, s.sender, domain.KeyIsBlacklisted, models.AttributeRecord{Value: big.NewInt(0)})
		s.Require().NoError(err2)

		auth, err := s.engine.CanTransferFrom(s.ctx, spender, s.sender, s.investor)
		s.Require().NoError(err)
		s.Equal(s.investor, auth.ResolvedTo)
	})
}

// =============================================================================
// Mint Tests
// =============================================================================

func (s *AuthzEngineSuite) TestCanMint() {
	s.Run("requires the KYC attestation", func() {
		_, err := s.engine.CanMint(s.ctx, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceNotMet))
	})

	s.Run("KYC on the canonical account covers deposit addresses", func() {
		canonical := domain.Address{0xcc}
		deposit := domain.Address{0: 0x12, 19: 0x07}
		s.mapDeposit(resolver.DepositBucket(deposit), canonical)
		s.set(canonical, domain.KeyHasPassedKYCAML, 1)

		auth, err := s.engine.CanMint(s.ctx, deposit)
		s.Require().NoError(err)
		s.Equal(canonical, auth.ResolvedTo)
	})

	s.Run("blacklist outranks KYC", func() {
		s.set(s.investor, domain.KeyHasPassedKYCAML, 1)
		s.set(s.investor, domain.KeyIsBlacklisted, 1)

		_, err := s.engine.CanMint(s.ctx, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))
	})
}

// =============================================================================
// Burn Tests
// =============================================================================

func (s *AuthzEngineSuite) TestCanBurn() {
	s.Run("requires the burn capability", func() {
		err := s.engine.CanBurn(s.ctx, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceNotMet))
	})

	s.Run("capability plus clean blacklist passes", func() {
		s.set(s.investor, domain.KeyCanBurn, 1)
		s.NoError(s.engine.CanBurn(s.ctx, s.investor))
	})

	s.Run("blacklist blocks a capable account", func() {
		s.set(s.investor, domain.KeyCanBurn, 1)
		s.set(s.investor, domain.KeyIsBlacklisted, 1)

		err := s.engine.CanBurn(s.ctx, s.investor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))
	})

	s.Run("is not deposit-address-aware", func() {
		canonical := domain.Address{0xcc}
		deposit := domain.Address{0: 0x12, 19: 0x07}
		s.mapDeposit(resolver.DepositBucket(deposit), canonical)
		s.set(canonical, domain.KeyCanBurn, 1)

		// The capability lives on the canonical account; the literal
		// deposit address cannot burn.
		err := s.engine.CanBurn(s.ctx, deposit)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceNotMet))
	})
}

// TestComplianceLifecycle walks one investor through onboarding: mint is
// closed until KYC lands, stays open across unrelated attribute changes,
// and closes again the moment the account is blacklisted.
func (s *AuthzEngineSuite) TestComplianceLifecycle() {
	_, err := s.engine.CanMint(s.ctx, s.investor)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeComplianceNotMet))

	s.set(s.investor, domain.KeyHasPassedKYCAML, 1)
	auth, err := s.engine.CanMint(s.ctx, s.investor)
	s.Require().NoError(err)
	s.False(auth.ToRegisteredContract)

	s.set(s.investor, domain.KeyIsRegisteredContract, 1)
	auth, err = s.engine.CanMint(s.ctx, s.investor)
	s.Require().NoError(err)
	s.True(auth.ToRegisteredContract)

	s.set(s.investor, domain.KeyIsBlacklisted, 1)
	_, err = s.engine.CanMint(s.ctx, s.investor)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))

	_, err = s.engine.CanTransfer(s.ctx, s.sender, s.investor)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBlacklisted))
}
