package mirror

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"

	"custos/pkg/domain"
)

// RedisTarget mirrors attribute values into a Redis hash per subject. The
// deployed "clone" consumer reads these hashes; tests read them back through
// Value.
type RedisTarget struct {
	client *redis.Client
}

func NewRedisTarget(client *redis.Client) *RedisTarget {
	return &RedisTarget{client: client}
}

func (t *RedisTarget) Name() string { return "redis" }

// Close releases the underlying Redis connection. The broadcaster calls it
// when the target is displaced.
func (t *RedisTarget) Close() error {
	return t.client.Close()
}

func (t *RedisTarget) SetAttributeValue(ctx context.Context, subject domain.Address, key domain.AttributeKey, value *big.Int) error {
	if err := t.client.HSet(ctx, subjectHashKey(subject), fieldKey(key), encodeValue(value)).Err(); err != nil {
		return fmt.Errorf("mirror hset: %w", err)
	}
	return nil
}

// Value reads the mirrored value back. Missing fields decode to zero, the
// same absent-equals-zero convention the registry uses.
func (t *RedisTarget) Value(ctx context.Context, subject domain.Address, key domain.AttributeKey) (*big.Int, error) {
	raw, err := t.client.HGet(ctx, subjectHashKey(subject), fieldKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("mirror hget: %w", err)
	}
	return decodeValue(raw)
}

func subjectHashKey(subject domain.Address) string {
	return "custos:attr:" + subject.String()
}

func fieldKey(key domain.AttributeKey) string {
	return "0x" + hex.EncodeToString(key[:])
}

func encodeValue(v *big.Int) string {
	buf := make([]byte, domain.KeyLen)
	if v != nil {
		v.FillBytes(buf)
	}
	return "0x" + hex.EncodeToString(buf)
}

func decodeValue(s string) (*big.Int, error) {
	if len(s) < 2 || s[:2] != "0x" {
		return nil, fmt.Errorf("mirror value %q is not 0x hex", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("decode mirror value: %w", err)
	}
	return new(big.Int).SetBytes(b), nil
}
