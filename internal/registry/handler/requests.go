package handler

import (
	"math/big"
	"strings"
	"time"

	dErrors "custos/pkg/domain-errors"
	"custos/pkg/domain"

	"custos/internal/registry/models"
)

// SetAttributeRequest is the wire shape for full-record writes.
type SetAttributeRequest struct {
	Subject string `json:"subject"`
	Key     string `json:"key"`
	Value   string `json:"value"`
	Notes   string `json:"notes,omitempty"`
}

// SetAttributeValueRequest is the wire shape for value-only writes.
type SetAttributeValueRequest struct {
	Subject string `json:"subject"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// AttributeResponse mirrors a stored record. Absent records serialize as
// the zero record, matching store semantics.
type AttributeResponse struct {
	Subject      domain.Address      `json:"subject"`
	Key          domain.AttributeKey `json:"key"`
	Value        string              `json:"value"`
	Notes        domain.Notes        `json:"notes"`
	AdminAddress domain.Address      `json:"admin_address"`
	Timestamp    *time.Time          `json:"timestamp,omitempty"`
}

// ValueProjection is the ?field=value shape.
type ValueProjection struct {
	Subject domain.Address      `json:"subject"`
	Key     domain.AttributeKey `json:"key"`
	Value   string              `json:"value"`
}

// AdminProjection is the ?field=admin shape.
type AdminProjection struct {
	Subject      domain.Address      `json:"subject"`
	Key          domain.AttributeKey `json:"key"`
	AdminAddress domain.Address      `json:"admin_address"`
}

// TimestampProjection is the ?field=timestamp shape; never-written records
// omit the timestamp.
type TimestampProjection struct {
	Subject   domain.Address      `json:"subject"`
	Key       domain.AttributeKey `json:"key"`
	Timestamp *time.Time          `json:"timestamp,omitempty"`
}

// FromRecord converts a stored record into its wire shape.
func FromRecord(subject domain.Address, key domain.AttributeKey, rec models.AttributeRecord) AttributeResponse {
	resp := AttributeResponse{
		Subject:      subject,
		Key:          key,
		Value:        rec.Value.String(),
		Notes:        rec.Notes,
		AdminAddress: rec.AdminAddress,
	}
	if !rec.Timestamp.IsZero() {
		ts := rec.Timestamp
		resp.Timestamp = &ts
	}
	return resp
}

// ParseValue accepts a decimal or 0x-hex 256-bit unsigned integer.
func ParseValue(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "value is required")
	}
	base := 10
	if raw, cut := strings.CutPrefix(s, "0x"); cut {
		s, base = raw, 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "value is not a valid integer")
	}
	if err := domain.ValidateValue(v); err != nil {
		return nil, err
	}
	return v, nil
}
