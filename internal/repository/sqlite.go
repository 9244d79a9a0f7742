package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mkamau/pesabridge/internal/domain"
)

// SQLiteStore persists conversations and pending payments in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens the database, runs migrations, and returns a store.
// ttl bounds how long an idle conversation stays relay-eligible; zero
// disables expiry.
func NewSQLiteStore(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db, ttl: ttl}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			customer_number TEXT NOT NULL,
			feedback_number TEXT NOT NULL,
			last_activity_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			payment_amount REAL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (customer_number, feedback_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_customer ON conversations(customer_number, active)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_feedback ON conversations(feedback_number, active)`,
		`CREATE TABLE IF NOT EXISTS pending_payments (
			token TEXT PRIMARY KEY,
			customer_number TEXT NOT NULL,
			amount REAL NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_payments_customer ON pending_payments(customer_number, completed)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert creates or refreshes the conversation for a (customer, feedback)
// pair. An existing row gets a fresh last_activity_at, is forced active, and
// keeps its payment amount unless a new one is supplied. The whole operation
// is a single statement, so concurrent calls for the same pair cannot
// interleave partial writes.
func (s *SQLiteStore) Upsert(ctx context.Context, customerNumber, feedbackNumber string, amount *float64) (*domain.Conversation, error) {
	now := time.Now().UTC()
	var amt sql.NullFloat64
	if amount != nil {
		amt = sql.NullFloat64{Float64: *amount, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, customer_number, feedback_number, last_activity_at, payment_amount, active, created_at)
		 VALUES (?, ?, ?, ?, ?, TRUE, ?)
		 ON CONFLICT (customer_number, feedback_number) DO UPDATE SET
			last_activity_at = excluded.last_activity_at,
			payment_amount = COALESCE(excluded.payment_amount, conversations.payment_amount),
			active = TRUE`,
		uuid.NewString(), customerNumber, feedbackNumber, now, amt, now)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "upsert_conversation", err)
	}

	return s.getPair(ctx, customerNumber, feedbackNumber)
}

// Touch refreshes last_activity_at on the active conversation phoneNumber
// belongs to, keeping relayed traffic from tripping the idle expiry.
func (s *SQLiteStore) Touch(ctx context.Context, phoneNumber string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET last_activity_at = ?
		 WHERE (customer_number = ? OR feedback_number = ?) AND active = TRUE`,
		time.Now().UTC(), phoneNumber, phoneNumber)
	if err != nil {
		return domain.NewError(domain.ErrPersistence, "touch_conversation", err)
	}
	return nil
}

// IsActive reports whether phoneNumber participates in any active
// conversation. Conversations idle past the TTL are deactivated here,
// lazily, before the check.
func (s *SQLiteStore) IsActive(ctx context.Context, phoneNumber string) (bool, error) {
	if err := s.expireStale(ctx, phoneNumber); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM conversations
			WHERE (customer_number = ? OR feedback_number = ?) AND active = TRUE
		)`,
		phoneNumber, phoneNumber).Scan(&exists)
	if err != nil {
		return false, domain.NewError(domain.ErrPersistence, "is_active", err)
	}
	return exists, nil
}

// PartnerOf returns the other party of the first active conversation where
// phoneNumber matches either role. A customer-side match takes priority over
// a feedback-side match. Returns "" when no partner is resolvable.
func (s *SQLiteStore) PartnerOf(ctx context.Context, phoneNumber string) (string, error) {
	if err := s.expireStale(ctx, phoneNumber); err != nil {
		return "", err
	}

	var partner string
	err := s.db.QueryRowContext(ctx,
		`SELECT feedback_number FROM conversations
		 WHERE customer_number = ? AND active = TRUE
		 ORDER BY created_at LIMIT 1`,
		phoneNumber).Scan(&partner)
	if err == nil {
		return partner, nil
	}
	if err != sql.ErrNoRows {
		return "", domain.NewError(domain.ErrPersistence, "partner_of_customer", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT customer_number FROM conversations
		 WHERE feedback_number = ? AND active = TRUE
		 ORDER BY created_at LIMIT 1`,
		phoneNumber).Scan(&partner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", domain.NewError(domain.ErrPersistence, "partner_of_feedback", err)
	}
	return partner, nil
}

// Deactivate closes the conversation for a pair.
func (s *SQLiteStore) Deactivate(ctx context.Context, customerNumber, feedbackNumber string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET active = FALSE
		 WHERE customer_number = ? AND feedback_number = ?`,
		customerNumber, feedbackNumber)
	if err != nil {
		return domain.NewError(domain.ErrPersistence, "deactivate_conversation", err)
	}
	return nil
}

// expireStale deactivates conversations involving phoneNumber whose last
// activity is older than the TTL.
func (s *SQLiteStore) expireStale(ctx context.Context, phoneNumber string) error {
	if s.ttl <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-s.ttl)
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET active = FALSE
		 WHERE (customer_number = ? OR feedback_number = ?)
		   AND active = TRUE AND last_activity_at < ?`,
		phoneNumber, phoneNumber, cutoff)
	if err != nil {
		return domain.NewError(domain.ErrPersistence, "expire_stale", err)
	}
	return nil
}

func (s *SQLiteStore) getPair(ctx context.Context, customerNumber, feedbackNumber string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var amount sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, customer_number, feedback_number, last_activity_at, payment_amount, active, created_at
		 FROM conversations WHERE customer_number = ? AND feedback_number = ?`,
		customerNumber, feedbackNumber).Scan(
		&conv.ID, &conv.CustomerNumber, &conv.FeedbackNumber, &conv.LastActivityAt, &amount, &conv.Active, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "get_conversation", err)
	}
	if amount.Valid {
		conv.PaymentAmount = &amount.Float64
	}
	return &conv, nil
}

// GetConversation retrieves the conversation for a pair, or nil.
func (s *SQLiteStore) GetConversation(ctx context.Context, customerNumber, feedbackNumber string) (*domain.Conversation, error) {
	return s.getPair(ctx, customerNumber, feedbackNumber)
}

// CreatePendingPayment records an accepted initiation under its correlation
// token.
func (s *SQLiteStore) CreatePendingPayment(ctx context.Context, p *domain.PendingPayment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pending_payments (token, customer_number, amount, completed, created_at)
		 VALUES (?, ?, ?, FALSE, ?)`,
		p.Token, p.CustomerNumber, p.Amount, time.Now().UTC())
	if err != nil {
		return domain.NewError(domain.ErrPersistence, "create_pending_payment", err)
	}
	return nil
}

// ConsumePendingPayment marks the pending payment for token completed and
// returns it. Returns nil when the token is unknown or already consumed.
func (s *SQLiteStore) ConsumePendingPayment(ctx context.Context, token string) (*domain.PendingPayment, error) {
	if token == "" {
		return nil, nil
	}

	var p domain.PendingPayment
	err := s.db.QueryRowContext(ctx,
		`SELECT token, customer_number, amount, completed, created_at
		 FROM pending_payments WHERE token = ?`,
		token).Scan(&p.Token, &p.CustomerNumber, &p.Amount, &p.Completed, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "get_pending_payment", err)
	}
	if p.Completed {
		return nil, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_payments SET completed = TRUE WHERE token = ? AND completed = FALSE`,
		token)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "consume_pending_payment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "consume_pending_payment", err)
	}
	if affected == 0 {
		// Lost the race to a concurrent callback for the same token.
		return nil, nil
	}
	p.Completed = true
	return &p, nil
}
