package projects

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JoinRequest is one ledger entry. Entries are never deleted.
type JoinRequest struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Status      Status     `json:"status"`
	RequestTime time.Time  `json:"request_time"`
	RemovalTime *time.Time `json:"removal_time,omitempty"`
}

// Ledger is the ordered join-request history of a project. Insertion order is
// request order; byID and latest are derived indexes rebuilt on load.
type Ledger struct {
	entries []JoinRequest
	byID    map[string]int
	latest  map[string]int
}

// NewLedger builds a ledger from entries in insertion order.
func NewLedger(entries ...JoinRequest) (Ledger, error) {
	var l Ledger
	for _, entry := range entries {
		if err := l.Append(entry); err != nil {
			return Ledger{}, err
		}
	}
	return l, nil
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in insertion order.
func (l *Ledger) Entries() []JoinRequest {
	out := make([]JoinRequest, len(l.entries))
	for i, entry := range l.entries {
		out[i] = entry.clone()
	}
	return out
}

// Get returns the entry with the supplied id.
func (l *Ledger) Get(id string) (JoinRequest, bool) {
	l.ensureIndex()
	idx, ok := l.byID[strings.TrimSpace(id)]
	if !ok {
		return JoinRequest{}, false
	}
	return l.entries[idx].clone(), true
}

// Latest returns the most recently appended entry for userID.
func (l *Ledger) Latest(userID string) (JoinRequest, bool) {
	l.ensureIndex()
	idx, ok := l.latest[userID]
	if !ok {
		return JoinRequest{}, false
	}
	return l.entries[idx].clone(), true
}

// LatestWithStatus returns the most recent entry for userID in the given status.
func (l *Ledger) LatestWithStatus(userID string, status Status) (JoinRequest, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].UserID == userID && l.entries[i].Status == status {
			return l.entries[i].clone(), true
		}
	}
	return JoinRequest{}, false
}

// Append adds a new entry at the end of the ledger.
func (l *Ledger) Append(entry JoinRequest) error {
	entry.ID = strings.TrimSpace(entry.ID)
	entry.UserID = strings.TrimSpace(entry.UserID)
	if entry.ID == "" || entry.UserID == "" {
		return errors.New("ledger: entry id and user id are required")
	}
	if !entry.Status.Valid() {
		return fmt.Errorf("ledger: entry %s has unknown status %q", entry.ID, entry.Status)
	}

	l.ensureIndex()
	if _, exists := l.byID[entry.ID]; exists {
		return fmt.Errorf("ledger: duplicate entry id %s", entry.ID)
	}

	l.entries = append(l.entries, entry.clone())
	idx := len(l.entries) - 1
	l.byID[entry.ID] = idx
	l.latest[entry.UserID] = idx
	return nil
}

// replace overwrites an existing entry in place, keeping its position.
func (l *Ledger) replace(entry JoinRequest) error {
	l.ensureIndex()
	idx, ok := l.byID[entry.ID]
	if !ok {
		return ErrJoinRequestNotFound
	}
	if l.entries[idx].UserID != entry.UserID {
		return fmt.Errorf("ledger: entry %s cannot change owner", entry.ID)
	}
	l.entries[idx] = entry.clone()
	return nil
}

func (l *Ledger) ensureIndex() {
	if l.byID != nil && len(l.byID) == len(l.entries) {
		return
	}
	l.byID = make(map[string]int, len(l.entries))
	l.latest = make(map[string]int)
	for i, entry := range l.entries {
		l.byID[entry.ID] = i
		l.latest[entry.UserID] = i
	}
}

// MarshalJSON encodes the ledger as an ordered array.
func (l Ledger) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

// UnmarshalJSON decodes an ordered array and rebuilds the indexes.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var entries []JoinRequest
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("ledger: decode: %w", err)
	}
	rebuilt, err := NewLedger(entries...)
	if err != nil {
		return err
	}
	*l = rebuilt
	return nil
}

// Value implements driver.Valuer so the ledger persists as a JSON column.
func (l Ledger) Value() (driver.Value, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *Ledger) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = Ledger{}
		return nil
	case []byte:
		if len(v) == 0 {
			*l = Ledger{}
			return nil
		}
		return l.UnmarshalJSON(v)
	case string:
		if v == "" {
			*l = Ledger{}
			return nil
		}
		return l.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("ledger: unsupported scan type %T", src)
	}
}

func (r JoinRequest) clone() JoinRequest {
	if r.RemovalTime != nil {
		t := *r.RemovalTime
		r.RemovalTime = &t
	}
	return r
}
