package shared

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is the UUID identity every entity carries. It is opaque to callers;
// construction goes through NewID or IDFromString.
type ID struct {
	value uuid.UUID
}

// NewID returns a fresh random ID.
func NewID() ID {
	return ID{value: uuid.New()}
}

// IDFromString parses a UUID string into an ID.
func IDFromString(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid id format: %w", err)
	}
	return ID{value: parsed}, nil
}

func (id ID) String() string {
	return id.value.String()
}

// IsZero reports whether the ID was never assigned.
func (id ID) IsZero() bool {
	return id.value == uuid.Nil
}

func (id ID) Equals(other ID) bool {
	return id.value == other.value
}

// Value implements driver.Valuer so IDs bind directly as query arguments.
func (id ID) Value() (driver.Value, error) {
	return id.value.String(), nil
}

// Scan implements sql.Scanner for reading uuid columns.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		id.value = parsed
	case []byte:
		parsed, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		id.value = parsed
	default:
		return fmt.Errorf("cannot scan type %T into ID", src)
	}
	return nil
}

// MarshalJSON renders the ID as a bare UUID string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("invalid id format")
	}
	parsed, err := uuid.Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	id.value = parsed
	return nil
}
