package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID is an opaque entity identifier. Rows and clients hand identifiers around
// as UUIDs, plain strings or JSON numbers; ID keeps them all as text so they
// can be compared with Same.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// IDOf coerces v into an ID.
func IDOf(v any) ID {
	switch t := v.(type) {
	case nil:
		return ""
	case ID:
		return t.Canonical()
	case *ID:
		if t == nil {
			return ""
		}
		return t.Canonical()
	case string:
		return ID(t).Canonical()
	case uuid.UUID:
		return ID(t.String())
	case int:
		return ID(strconv.Itoa(t))
	case int64:
		return ID(strconv.FormatInt(t, 10))
	case int32:
		return ID(strconv.FormatInt(int64(t), 10))
	case uint64:
		return ID(strconv.FormatUint(t, 10))
	case float64:
		return ID(strconv.FormatFloat(t, 'f', -1, 64))
	case json.Number:
		return numberID(t)
	case fmt.Stringer:
		return ID(t.String()).Canonical()
	default:
		return ID(fmt.Sprint(t)).Canonical()
	}
}

// Canonical returns the normalized form used for comparisons: surrounding
// whitespace removed and UUIDs rendered lower-case and hyphenated.
func (id ID) Canonical() ID {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return ""
	}
	if u, err := uuid.Parse(s); err == nil {
		return ID(u.String())
	}
	return ID(s)
}

// Same reports whether id and other name the same entity. Empty ids never match.
func (id ID) Same(other ID) bool {
	a, b := id.Canonical(), other.Canonical()
	return a != "" && a == b
}

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool {
	return id.Canonical() == ""
}

func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*id = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s).Canonical()
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = numberID(n)
	return nil
}

// numberID renders a JSON number the way a JavaScript client would stringify
// it, so 1.0 and "1" name the same entity. Plain integer literals keep their
// digits even beyond float64 precision.
func numberID(n json.Number) ID {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return ID(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ID(s)
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64))
}
