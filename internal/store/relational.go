package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerEntryType names the kind of chip movement recorded in the
// append-only ledger (session_id x user x type x amount x admin x note x
// timestamp).
type LedgerEntryType string

const (
	LedgerBuyIn LedgerEntryType = "buy_in"
	LedgerCashOut LedgerEntryType = "cash_out"
	LedgerAdjustment LedgerEntryType = "adjustment"
)

// User is the authenticated identity's durable row. The core never stores
// passwords itself — Username is kept only so ledger/standings queries can
// resolve a display name.
type User struct {
	ID string `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;size:50"`
	Role string `gorm:"size:20;not null;default:PLAYER"`
	CreatedAt time.Time
}

// GameSession is a "poker night": a bounded span of table play that ledger
// entries and standings are scoped to.
type GameSession struct {
	ID string `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
	StartedAt time.Time
	EndedAt *time.Time
	IsActive bool `gorm:"not null;default:true"`
}

// LedgerEntry is one append-only chip-movement row: session x user x type x
// amount x admin x note x timestamp.
type LedgerEntry struct {
	ID string `gorm:"primaryKey"`
	SessionID string `gorm:"index;not null"`
	UserID string `gorm:"index;not null"`
	Type LedgerEntryType `gorm:"size:20;not null"`
	Amount int `gorm:"not null"`
	AdminID string `gorm:"index"`
	Note string
	CreatedAt time.Time `gorm:"index"`
}

// TableStateBackup is a durable snapshot of a table's in-memory state,
// written on shutdown. Nothing in this module reads it back on startup.
type TableStateBackup struct {
	TableID string `gorm:"primaryKey"`
	State []byte `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

// StandingEntry is one user's net chip delta within a session.
type StandingEntry struct {
	UserID string
	Delta int
}

// RelationalStore is the narrow interface the hub uses for durable
// users/sessions/ledger bookkeeping. The one production implementation is
// GormStore (gorm.io/gorm + gorm.io/driver/postgres); tests use a fake
// satisfying this interface instead of a real database.
type RelationalStore interface {
	EnsureUser(ctx context.Context, userID, username, role string) error
	ActiveSession(ctx context.Context) (string, error)
	RecordLedgerEntry(ctx context.Context, sessionID, userID string, typ LedgerEntryType, amount int, adminID, note string) (LedgerEntry, error)
	LedgerForSession(ctx context.Context, sessionID string) ([]LedgerEntry, error)
	Standings(ctx context.Context, sessionID string) ([]StandingEntry, error)
	BackupTableState(ctx context.Context, tableID string, state []byte) error
	EndSession(ctx context.Context, sessionID string) error
}

// GormStore is the production RelationalStore, backed by Postgres via gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an already-connected *gorm.DB and ensures its schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&User{}, &GameSession{}, &LedgerEntry{}, &TableStateBackup{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) EnsureUser(ctx context.Context, userID, username, role string) error {
	user := User{ID: userID, Username: username, Role: role, CreatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Where(User{ID: userID}).
		Attrs(user).
		FirstOrCreate(&user).Error
}

// ActiveSession returns the current poker night, creating one if none is
// active.
func (s *GormStore) ActiveSession(ctx context.Context) (string, error) {
	var session GameSession
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("started_at desc").
		First(&session).Error
	if err == nil {
		return session.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", err
	}

	session = GameSession{ID: newID(), StartedAt: time.Now(), IsActive: true}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", err
	}
	return session.ID, nil
}

func (s *GormStore) RecordLedgerEntry(ctx context.Context, sessionID, userID string, typ LedgerEntryType, amount int, adminID, note string) (LedgerEntry, error) {
	entry := LedgerEntry{
		ID: newID(),
		SessionID: sessionID,
		UserID: userID,
		Type: typ,
		Amount: amount,
		AdminID: adminID,
		Note: note,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

func (s *GormStore) LedgerForSession(ctx context.Context, sessionID string) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at").
		Find(&entries).Error
	return entries, err
}

// Standings aggregates each user's net chip delta for the session: cash_outs
// + adjustments - buy_ins.
func (s *GormStore) Standings(ctx context.Context, sessionID string) ([]StandingEntry, error) {
	type row struct {
		UserID string
		Delta int
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Select("user_id, "+
			"SUM(CASE WHEN type = 'cash_out' THEN amount WHEN type = 'adjustment' THEN amount ELSE -amount END) as delta").
		Where("session_id = ?", sessionID).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]StandingEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, StandingEntry{UserID: r.UserID, Delta: r.Delta})
	}
	return out, nil
}

func (s *GormStore) BackupTableState(ctx context.Context, tableID string, state []byte) error {
	backup := TableStateBackup{TableID: tableID, State: state, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Save(&backup).Error
}

func (s *GormStore) EndSession(ctx context.Context, sessionID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&GameSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"is_active": false, "ended_at": now}).Error
}

// newID generates a unique id for rows this package creates directly
// (gorm's primary keys are plain strings here rather than Postgres's
// gen_random_uuid(), so both sqlite-backed tests and Postgres production
// deployments get ids without relying on a DB-side default).
func newID() string {
	return uuid.NewString()
}
