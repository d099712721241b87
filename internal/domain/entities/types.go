package entities

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// IDList is an ordered set of identifiers scanned from a postgres uuid[] aggregate
type IDList []uuid.UUID

// Scan implements sql.Scanner
func (l *IDList) Scan(value interface{}) error {
	if value == nil {
		*l = IDList{}
		return nil
	}

	var raw pq.StringArray
	if err := raw.Scan(value); err != nil {
		return fmt.Errorf("scan id list: %w", err)
	}

	ids := make(IDList, 0, len(raw))
	for _, s := range raw {
		if s == "" || s == "NULL" {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("scan id list: %w", err)
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

// Value implements driver.Valuer
func (l IDList) Value() (driver.Value, error) {
	return pq.StringArray(l.Strings()).Value()
}

func (l IDList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]uuid.UUID(l))
}

func (l IDList) Strings() []string {
	out := make([]string, len(l))
	for i, id := range l {
		out[i] = id.String()
	}
	return out
}

// Dedup drops repeated ids, keeping the first occurrence
func (l IDList) Dedup() IDList {
	seen := make(map[uuid.UUID]struct{}, len(l))
	out := make(IDList, 0, len(l))
	for _, id := range l {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Equal compares order and content
func (l IDList) Equal(other IDList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// Nullable distinguishes an absent field from an explicit null in partial updates.
// Set is false when the JSON key was missing; Value is nil for an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a Nullable holding v
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a Nullable that clears the field
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
