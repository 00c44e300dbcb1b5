package resolver

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/suite"

	"custos/internal/registry/models"
	"custos/internal/registry/store"
	"custos/pkg/domain"
)

type ResolverSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	resolver *Resolver
	ctx      context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.resolver = New(s.store)
}

func (s *ResolverSuite) registerBucket(bucket, canonical domain.Address) {
	_, _, err := s.store.Put(s.ctx, bucket, domain.KeyIsDepositAddress, models.AttributeRecord{
		Value: canonical.Value(),
	})
	s.Require().NoError(err)
}

func (s *ResolverSuite) TestDepositBucket() {
	s.Run("zeroes the low five bytes", func() {
		addr := domain.Address{0: 0x12, 14: 0xff, 15: 0x01, 19: 0x99}
		bucket := DepositBucket(addr)
		s.Equal(byte(0x12), bucket[0])
		s.Equal(byte(0xff), bucket[14])
		for i := 15; i < domain.AddressLen; i++ {
			s.Equal(byte(0), bucket[i])
		}
	})

	s.Run("addresses differing only in the suffix share a bucket", func() {
		a := domain.Address{0: 0x12, 19: 0x01}
		b := domain.Address{0: 0x12, 19: 0xfe}
		s.Equal(DepositBucket(a), DepositBucket(b))
	})
}

func (s *ResolverSuite) TestResolve() {
	canonical := domain.Address{0xcc}

	s.Run("unmapped address resolves to itself", func() {
		addr := domain.Address{0x01}
		resolved, err := s.resolver.Resolve(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal(addr, resolved)
	})

	s.Run("every suffix in a mapped bucket resolves to the canonical account", func() {
		base := domain.Address{0: 0x12, 1: 0x34}
		s.registerBucket(DepositBucket(base), canonical)

		for _, suffix := range []byte{0x00, 0x01, 0x7f, 0xff} {
			addr := base
			addr[domain.AddressLen-1] = suffix
			resolved, err := s.resolver.Resolve(s.ctx, addr)
			s.Require().NoError(err)
			s.Equal(canonical, resolved)
		}
	})

	s.Run("zero-valued mapping is treated as unmapped", func() {
		addr := domain.Address{0x42}
		s.registerBucket(DepositBucket(addr), domain.ZeroAddress)

		resolved, err := s.resolver.Resolve(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal(addr, resolved)
	})

	s.Run("mapping value above 160 bits still yields a valid address", func() {
		addr := domain.Address{0x55}
		v := new(big.Int).Lsh(big.NewInt(1), 200)
		v.Or(v, canonical.Value())
		_, _, err := s.store.Put(s.ctx, DepositBucket(addr), domain.KeyIsDepositAddress, models.AttributeRecord{
			Value: v,
		})
		s.Require().NoError(err)

		resolved, err := s.resolver.Resolve(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal(canonical, resolved)
	})

	s.Run("resolution is a single hop", func() {
		// a -> b and b -> c: resolving a must stop at b.
		a := domain.Address{0x60}
		b := domain.Address{0x61}
		c := domain.Address{0x62}
		s.registerBucket(DepositBucket(a), b)
		s.registerBucket(DepositBucket(b), c)

		resolved, err := s.resolver.Resolve(s.ctx, a)
		s.Require().NoError(err)
		s.Equal(b, resolved)
	})
}
