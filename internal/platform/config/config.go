package config

import (
	"fmt"
	"os"
	"strings"

	"custos/pkg/domain"
)

// Server captures process-level configuration for the registry service.
type Server struct {
	Addr          string
	JWTSigningKey string

	// OwnerAddress seeds the ownership singleton at boot. Required.
	OwnerAddress domain.Address

	// PostgresURL enables the Postgres attribute and audit stores; empty
	// keeps everything in memory.
	PostgresURL string

	// RedisURL registers a Redis mirror as the sync target at boot; empty
	// starts with no target.
	RedisURL string

	// KafkaBrokers enables the audit event sink; empty disables it.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() (Server, error) {
	addr := os.Getenv("CUSTOS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// The signing key anchors caller identity, so there is no default.
	jwtSigningKey := os.Getenv("CUSTOS_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		return Server{}, fmt.Errorf("CUSTOS_JWT_SIGNING_KEY is required")
	}

	ownerRaw := os.Getenv("CUSTOS_OWNER_ADDRESS")
	if ownerRaw == "" {
		return Server{}, fmt.Errorf("CUSTOS_OWNER_ADDRESS is required")
	}
	owner, err := domain.ParseAddress(ownerRaw)
	if err != nil {
		return Server{}, fmt.Errorf("CUSTOS_OWNER_ADDRESS: %w", err)
	}

	var brokers []string
	if raw := os.Getenv("CUSTOS_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		OwnerAddress:  owner,
		PostgresURL:   os.Getenv("CUSTOS_POSTGRES_URL"),
		RedisURL:      os.Getenv("CUSTOS_REDIS_URL"),
		KafkaBrokers:  brokers,
		KafkaTopic:    os.Getenv("CUSTOS_KAFKA_TOPIC"),
	}, nil
}
