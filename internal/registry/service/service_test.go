package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custos/internal/audit"
	"custos/internal/mirror"
	"custos/internal/ownership"
	"custos/internal/registry/access"
	"custos/internal/registry/store"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"
	"custos/pkg/requestcontext"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================
// Justification for unit tests: the write pipeline couples authorization,
// staging, sync push, and rollback. The rollback branch in particular cannot
// be exercised through E2E tests without a deliberately failing sync target.

type RegistryServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	ownership *ownership.Service
	target    *mirror.MemoryTarget
	publisher *audit.Publisher
	service   *Service

	owner    domain.Address
	delegate domain.Address
	subject  domain.Address
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *RegistryServiceSuite) SetupTest() {
	s.owner = domain.Address{0xaa}
	s.delegate = domain.Address{0xbb}
	s.subject = domain.Address{0x01}

	s.store = store.NewInMemory()

	ownerStore := ownership.NewInMemoryStore()
	s.Require().NoError(ownerStore.Init(context.Background(), s.owner))
	s.ownership = ownership.NewService(ownerStore)

	broadcaster := mirror.NewBroadcaster()
	s.target = mirror.NewMemoryTarget()
	broadcaster.SetTarget(s.target)

	s.publisher = audit.NewPublisher(16)

	s.service = New(
		s.store,
		access.NewController(s.ownership, s.store),
		broadcaster,
		s.publisher,
	)
}

func (s *RegistryServiceSuite) asOwner() context.Context {
	return requestcontext.WithCaller(context.Background(), s.owner)
}

func (s *RegistryServiceSuite) asDelegate() context.Context {
	return requestcontext.WithCaller(context.Background(), s.delegate)
}

func (s *RegistryServiceSuite) drainEvents() []audit.Event {
	var events []audit.Event
	for {
		select {
		case e := <-s.publisher.Inbox():
			events = append(events, e)
		default:
			return events
		}
	}
}

// =============================================================================
// Write Authorization Tests
// =============================================================================

func (s *RegistryServiceSuite) TestWriteAuthorization() {
	s.Run("owner may write any key", func() {
		_, err := s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyIsBlacklisted, big.NewInt(1))
		s.Require().NoError(err)
	})

	s.Run("unknown caller is rejected and state is unchanged", func() {
		stranger := requestcontext.WithCaller(context.Background(), domain.Address{0xcc})
		_, err := s.service.SetAttributeValue(stranger, s.subject, domain.KeyCanBurn, big.NewInt(1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		has, err := s.service.HasAttribute(context.Background(), s.subject, domain.KeyCanBurn)
		s.Require().NoError(err)
		s.False(has)
		s.Empty(s.drainEvents())
	})

	s.Run("delegated grant is scoped to its key", func() {
		grantKey := access.DelegatedWriteKey(domain.KeyHasPassedKYCAML)
		_, err := s.service.SetAttributeValue(s.asOwner(), s.delegate, grantKey, big.NewInt(1))
		s.Require().NoError(err)

		// Granted key works, for any subject.
		_, err = s.service.SetAttributeValue(s.asDelegate(), s.subject, domain.KeyHasPassedKYCAML, big.NewInt(1))
		s.Require().NoError(err)

		// Any other key stays closed.
		_, err = s.service.SetAttributeValue(s.asDelegate(), s.subject, domain.KeyIsBlacklisted, big.NewInt(1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("delegate cannot mint further grants", func() {
		grantKey := access.DelegatedWriteKey(domain.KeyHasPassedKYCAML)
		_, err := s.service.SetAttributeValue(s.asOwner(), s.delegate, grantKey, big.NewInt(1))
		s.Require().NoError(err)

		// Writing the grant key itself requires a grant derived from the
		// grant key, which only the owner can produce.
		_, err = s.service.SetAttributeValue(s.asDelegate(), domain.Address{0xdd}, grantKey, big.NewInt(1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Write Pipeline Tests
// =============================================================================

func (s *RegistryServiceSuite) TestWritePipeline() {
	s.Run("record carries caller, notes, and request time", func() {
		at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.asOwner(), at)
		notes, err := domain.ParseNotes("kyc-provider-acme")
		s.Require().NoError(err)

		rec, err := s.service.SetAttribute(ctx, s.subject, domain.KeyHasPassedKYCAML, big.NewInt(1), notes)
		s.Require().NoError(err)
		s.Equal(s.owner, rec.AdminAddress)
		s.Equal(notes, rec.Notes)
		s.Equal(at, rec.Timestamp)
	})

	s.Run("value-only write clears prior notes", func() {
		notes, err := domain.ParseNotes("provisional")
		s.Require().NoError(err)
		_, err = s.service.SetAttribute(s.asOwner(), s.subject, domain.KeyCanBurn, big.NewInt(1), notes)
		s.Require().NoError(err)

		_, err = s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyCanBurn, big.NewInt(2))
		s.Require().NoError(err)

		rec, err := s.service.GetAttribute(context.Background(), s.subject, domain.KeyCanBurn)
		s.Require().NoError(err)
		s.Equal(domain.ZeroNotes, rec.Notes)
		s.Zero(rec.Value.Cmp(big.NewInt(2)))
	})

	s.Run("rejects out-of-range values before touching state", func() {
		over := new(big.Int).Lsh(big.NewInt(1), 256)
		_, err := s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyIsBlacklisted, over)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		has, err := s.service.HasAttribute(context.Background(), s.subject, domain.KeyIsBlacklisted)
		s.Require().NoError(err)
		s.False(has)
	})

	s.Run("accepted write reaches the sync target and the audit log", func() {
		_, err := s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyIsBlacklisted, big.NewInt(1))
		s.Require().NoError(err)

		s.Zero(s.target.Value(s.subject, domain.KeyIsBlacklisted).Cmp(big.NewInt(1)))

		events := s.drainEvents()
		s.Require().Len(events, 1)
		s.Equal(audit.ActionSetAttributeValue, events[0].Action)
		s.Equal(s.subject, events[0].Subject)
		s.Equal(s.owner, events[0].AdminAddress)
	})
}

// =============================================================================
// Rollback Tests
// =============================================================================

func (s *RegistryServiceSuite) TestRollbackOnPushFailure() {
	s.Run("first write rolls back to absence", func() {
		s.target.FailNext = true
		_, err := s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyIsBlacklisted, big.NewInt(1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

		has, err := s.service.HasAttribute(context.Background(), s.subject, domain.KeyIsBlacklisted)
		s.Require().NoError(err)
		s.False(has)
		s.Empty(s.drainEvents())
	})

	s.Run("overwrite rolls back to the previous record", func() {
		_, err := s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyCanBurn, big.NewInt(1))
		s.Require().NoError(err)
		s.drainEvents()

		s.target.FailNext = true
		_, err = s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyCanBurn, big.NewInt(9))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

		v, err := s.service.GetAttributeValue(context.Background(), s.subject, domain.KeyCanBurn)
		s.Require().NoError(err)
		s.Zero(v.Cmp(big.NewInt(1)))
		s.Empty(s.drainEvents())
	})
}

// =============================================================================
// Read Tests
// =============================================================================

func (s *RegistryServiceSuite) TestReads() {
	s.Run("unwritten pair reads as the zero record", func() {
		rec, err := s.service.GetAttribute(context.Background(), s.subject, domain.KeyIsRegisteredContract)
		s.Require().NoError(err)
		s.Zero(rec.Value.Sign())
		s.True(rec.AdminAddress.IsZero())
		s.True(rec.Timestamp.IsZero())
	})

	s.Run("explicit zero write still reads as unset", func() {
		_, err := s.service.SetAttributeValue(s.asOwner(), s.subject, domain.KeyIsBlacklisted, big.NewInt(0))
		s.Require().NoError(err)

		has, err := s.service.HasAttribute(context.Background(), s.subject, domain.KeyIsBlacklisted)
		s.Require().NoError(err)
		s.False(has)

		// The record itself still carries admin metadata.
		admin, err := s.service.GetAttributeAdminAddr(context.Background(), s.subject, domain.KeyIsBlacklisted)
		s.Require().NoError(err)
		s.Equal(s.owner, admin)
	})

	s.Run("projections agree with the full record", func() {
		at := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.asOwner(), at)
		_, err := s.service.SetAttributeValue(ctx, s.subject, domain.KeyCanBurn, big.NewInt(3))
		s.Require().NoError(err)

		v, err := s.service.GetAttributeValue(context.Background(), s.subject, domain.KeyCanBurn)
		s.Require().NoError(err)
		s.Zero(v.Cmp(big.NewInt(3)))

		ts, err := s.service.GetAttributeTimestamp(context.Background(), s.subject, domain.KeyCanBurn)
		s.Require().NoError(err)
		s.Equal(at, ts)
	})
}
