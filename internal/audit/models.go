// Package audit captures the structured change log for attribute writes.
// Every accepted write emits exactly one event; external observers and
// auditors consume them from the store or the Kafka topic.
package audit

import (
	"math/big"
	"time"

	"github.com/google/uuid"

	"custos/pkg/domain"
)

// Action distinguishes how an event entered the log.
type Action string

const (
	ActionSetAttribute      Action = "set_attribute"
	ActionSetAttributeValue Action = "set_attribute_value"
	ActionResync            Action = "resync"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           uuid.UUID           `json:"id"`
	Timestamp    time.Time           `json:"timestamp"`
	Action       Action              `json:"action"`
	Subject      domain.Address      `json:"subject"`
	Key          domain.AttributeKey `json:"key"`
	Value        *big.Int            `json:"value"`
	Notes        domain.Notes        `json:"notes"`
	AdminAddress domain.Address      `json:"admin_address"`
}
