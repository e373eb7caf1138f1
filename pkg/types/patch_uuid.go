package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PatchUUID is a UUID field of a partial update. Set reports whether the key
// was present in the body; a present null clears the column.
type PatchUUID struct {
	Set bool
	ID  *uuid.UUID
}

// Cleared reports an explicit null.
func (p PatchUUID) Cleared() bool {
	return p.Set && p.ID == nil
}

func (p *PatchUUID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	p.Set = true
	if bytes.Equal(data, []byte("null")) {
		p.ID = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("uuid must be a string or null: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid uuid %q: %w", raw, err)
	}
	p.ID = &id
	return nil
}

func (p PatchUUID) MarshalJSON() ([]byte, error) {
	if p.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.ID.String())
}
