package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"proofing/pkg/domainerrors"
)

// PostgresStore persists profiles in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE profiles (
//	    id                  UUID PRIMARY KEY,
//	    user_id             TEXT NOT NULL,
//	    active              BOOLEAN NOT NULL DEFAULT FALSE,
//	    fraud_state         TEXT NOT NULL DEFAULT 'none',
//	    password_digest     TEXT,
//	    activated_at        TIMESTAMPTZ,
//	    verified_at         TIMESTAMPTZ,
//	    deactivation_reason TEXT,
//	    created_at          TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX profiles_user_id_idx ON profiles (user_id);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, user_id, active, fraud_state, password_digest, activated_at, verified_at, deactivation_reason, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9)`,
		p.ID, p.UserID, p.Active, string(p.FraudState), p.PasswordDigest,
		nullTime(p.ActivatedAt), nullTime(p.VerifiedAt), string(p.DeactivationReason), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, active, fraud_state, password_digest, activated_at, verified_at, deactivation_reason, created_at
		FROM profiles WHERE id = $1`, id)
	return scanProfile(row, id)
}

func (s *PostgresStore) Update(ctx context.Context, p *Profile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET active = $2, fraud_state = $3, password_digest = NULLIF($4, ''), activated_at = $5, verified_at = $6, deactivation_reason = NULLIF($7, '')
		WHERE id = $1`,
		p.ID, p.Active, string(p.FraudState), p.PasswordDigest, nullTime(p.ActivatedAt), nullTime(p.VerifiedAt), string(p.DeactivationReason),
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return domainerrors.Newf(domainerrors.CodeNotFound, "profile %s not found", p.ID)
	}
	return nil
}

func (s *PostgresStore) ActivateExclusive(ctx context.Context, id string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin activation: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id FROM profiles WHERE id = $1`, id,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domainerrors.Newf(domainerrors.CodeNotFound, "profile %s not found", id)
	}
	if err != nil {
		return false, fmt.Errorf("find profile: %w", err)
	}

	// Lock every profile of the user; concurrent activations for one user
	// serialize here.
	var hadActive bool
	rows, err := tx.QueryContext(ctx,
		`SELECT active FROM profiles WHERE user_id = $1 FOR UPDATE`, userID,
	)
	if err != nil {
		return false, fmt.Errorf("lock profiles: %w", err)
	}
	for rows.Next() {
		var active bool
		if err := rows.Scan(&active); err != nil {
			rows.Close()
			return false, fmt.Errorf("lock profiles: %w", err)
		}
		hadActive = hadActive || active
	}
	if err := rows.Close(); err != nil {
		return false, fmt.Errorf("lock profiles: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET active = FALSE WHERE user_id = $1 AND active`, userID,
	); err != nil {
		return false, fmt.Errorf("deactivate profiles: %w", err)
	}

	// The fraud state is re-checked under the row locks; an adjudication
	// racing the caller's own check rolls the whole activation back.
	res, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET active = TRUE, activated_at = $2, verified_at = $2, deactivation_reason = NULL
		WHERE id = $1 AND fraud_state NOT IN ('reviewing', 'rejected')`, id, now,
	)
	if err != nil {
		return false, fmt.Errorf("activate profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("activate profile: %w", err)
	}
	if affected == 0 {
		return false, domainerrors.Newf(domainerrors.CodeFraudBlocked, "profile %s blocked by fraud review", id)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit activation: %w", err)
	}
	return hadActive, nil
}

func (s *PostgresStore) HasActivated(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1 AND activated_at IS NOT NULL)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check proofing history: %w", err)
	}
	return exists, nil
}

func scanProfile(row *sql.Row, id string) (*Profile, error) {
	var (
		p           Profile
		fraudState  string
		digest      sql.NullString
		activatedAt sql.NullTime
		verifiedAt  sql.NullTime
		reason      sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Active, &fraudState, &digest, &activatedAt, &verifiedAt, &reason, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "profile %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.FraudState = FraudState(fraudState)
	p.PasswordDigest = digest.String
	if activatedAt.Valid {
		p.ActivatedAt = &activatedAt.Time
	}
	if verifiedAt.Valid {
		p.VerifiedAt = &verifiedAt.Time
	}
	p.DeactivationReason = DeactivationReason(reason.String)
	return &p, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
