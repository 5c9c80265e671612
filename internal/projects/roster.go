package projects

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Roster is the ordered set of user ids currently on a team.
type Roster []string

// Contains reports whether userID is on the roster.
func (r Roster) Contains(userID string) bool {
	for _, member := range r {
		if member == userID {
			return true
		}
	}
	return false
}

func (r Roster) without(userID string) Roster {
	out := make(Roster, 0, len(r))
	for _, member := range r {
		if member != userID {
			out = append(out, member)
		}
	}
	return out
}

// MarshalJSON encodes an empty roster as [] rather than null.
func (r Roster) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(r))
}

// Value implements driver.Valuer.
func (r Roster) Value() (driver.Value, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (r *Roster) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("roster: unsupported scan type %T", src)
	}
	if len(data) == 0 {
		*r = nil
		return nil
	}
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("roster: decode: %w", err)
	}
	*r = members
	return nil
}
