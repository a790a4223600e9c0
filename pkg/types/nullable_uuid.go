package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// NullableUUID is a patch field for an optional reference. Valid reports
// whether the field was sent at all; a nil Value with Valid set clears the
// reference.
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// ParseNullableUUID reads a form value. Empty and "null" clear the reference.
func ParseNullableUUID(raw string) (NullableUUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return NullableUUID{Valid: true}, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return NullableUUID{}, err
	}
	return NullableUUID{Valid: true, Value: &id}, nil
}

func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		*n = NullableUUID{Valid: true}
		return nil
	}
	var parsed uuid.UUID
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	*n = NullableUUID{Valid: true, Value: &parsed}
	return nil
}

func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Clears reports a present field that removes the reference.
func (n NullableUUID) Clears() bool {
	return n.Valid && n.Value == nil
}

// Apply writes the patch into dst when the field was sent and reports
// whether dst changed.
func (n NullableUUID) Apply(dst **uuid.UUID) bool {
	if !n.Valid {
		return false
	}
	if n.Value == nil {
		changed := *dst != nil
		*dst = nil
		return changed
	}
	if *dst != nil && **dst == *n.Value {
		return false
	}
	id := *n.Value
	*dst = &id
	return true
}
