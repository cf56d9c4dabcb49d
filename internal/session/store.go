// Package session implements the per-user disconnect-with-grace tombstone
// store: save on disconnect, reconnect within the grace window, sweep
// expired tombstones otherwise. A single mutex guards every operation so
// that a reconnect racing a sweep for the same user can never both
// succeed — a tombstone is observed by exactly one of TryReconnect or
// Sweep.
package session

import (
	"sync"
	"time"

	"github.com/lox/holdemcore/internal/cards"
)

// Clock abstracts time.Now so grace-window expiry is deterministically
// testable, mirroring internal/table.Clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Tombstone is the ephemeral record of a disconnected-but-still-seated
// player.
type Tombstone struct {
	UserID string
	TableID string
	Seat int
	Chips int
	HoleCards []cards.Card
	DisconnectedAt time.Time
	GraceDeadline time.Time
}

// Store tracks one tombstone per (user, table) pair. All three operations
// (Save, TryReconnect, Sweep) share a single mutex so that a reconnect and a
// sweep racing the same user can never both succeed.
type Store struct {
	mu sync.Mutex
	clock Clock
	graceSecs int
	tombstones map[key]Tombstone
}

type key struct {
	userID string
	tableID string
}

// New builds a Store whose tombstones expire graceSeconds after Save, using
// the configured `reconnect_grace_seconds` value.
func New(graceSeconds int) *Store {
	return &Store{
		clock: realClock{},
		graceSecs: graceSeconds,
		tombstones: make(map[key]Tombstone),
	}
}

// WithClock overrides the store's clock (tests only).
func (s *Store) WithClock(c Clock) *Store {
	s.clock = c
	return s
}

// Save upserts a tombstone for userID at tableID, recording the disconnect
// timestamp and a grace deadline of now + reconnect_grace_seconds.
func (s *Store) Save(userID, tableID string, seat, chips int, holeCards []cards.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.tombstones[key{userID, tableID}] = Tombstone{
		UserID: userID,
		TableID: tableID,
		Seat: seat,
		Chips: chips,
		HoleCards: append([]cards.Card{}, holeCards...),
		DisconnectedAt: now,
		GraceDeadline: now.Add(time.Duration(s.graceSecs) * time.Second),
	}
}

// TryReconnect reports whether a live (non-expired) tombstone exists for
// userID at tableID and, if so, atomically clears it and returns it.
func (s *Store) TryReconnect(userID, tableID string) (Tombstone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{userID, tableID}
	tomb, ok := s.tombstones[k]
	if !ok {
		return Tombstone{}, false
	}
	if !s.clock.Now().Before(tomb.GraceDeadline) {
		// Grace has already expired; this user belongs to Sweep now, not
		// TryReconnect. Leave the tombstone for the sweeper rather than
		// silently deleting it here, so Sweep's caller still sees and
		// processes the auto-fold/seat-removal side effects exactly once.
		return Tombstone{}, false
	}
	delete(s.tombstones, k)
	return tomb, true
}

// TryReconnectUser is TryReconnect keyed by user alone, for the AUTH path
// where the server does not yet know which table the user was seated at. At
// most one live tombstone exists per user (a user holds one seat at a
// time), so the first live match wins.
func (s *Store) TryReconnectUser(userID string) (Tombstone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for k, tomb := range s.tombstones {
		if k.userID != userID {
			continue
		}
		if !now.Before(tomb.GraceDeadline) {
			continue
		}
		delete(s.tombstones, k)
		return tomb, true
	}
	return Tombstone{}, false
}

// Sweep returns and deletes every tombstone for tableID whose grace deadline
// has passed. The hub uses this to trigger auto-fold and seat removal for
// abandoned seats.
func (s *Store) Sweep(tableID string) []Tombstone {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var expired []Tombstone
	for k, tomb := range s.tombstones {
		if k.tableID != tableID {
			continue
		}
		if !now.Before(tomb.GraceDeadline) {
			expired = append(expired, tomb)
			delete(s.tombstones, k)
		}
	}
	return expired
}

// Peek reports whether a tombstone exists for userID at tableID without
// consuming it (used for read-only diagnostics; never gates a decision that
// TryReconnect/Sweep must make atomically).
func (s *Store) Peek(userID, tableID string) (Tombstone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tomb, ok := s.tombstones[key{userID, tableID}]
	return tomb, ok
}
