package user

import (
	"context"
	"database/sql"
	"time"

	"github.com/maikschneider/oauth2/internal/db"
)

// PostgresStore is the canonical user store.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	uid, username, email, real_name, password, oauth_identifier,
	admin, disable, starttime, endtime, crdate, tstamp
`

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		r                  Record
		starttime, endtime sql.NullTime
	)

	err := row.Scan(
		&r.UID,
		&r.Username,
		&r.Email,
		&r.RealName,
		&r.Password,
		&r.OAuthIdentifier,
		&r.Admin,
		&r.Disable,
		&starttime,
		&endtime,
		&r.CrDate,
		&r.TStamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if starttime.Valid {
		r.StartTime = starttime.Time
	}
	if endtime.Valid {
		r.EndTime = endtime.Time
	}

	return &r, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (s *PostgresStore) FindByIdentifier(
	ctx context.Context,
	identifier string,
) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE oauth_identifier = $1
	`, identifier)

	return scanRecord(row)
}

func (s *PostgresStore) FindByUsernameOrEmail(
	ctx context.Context,
	username, email string,
) (*Record, error) {
	// The match can be ambiguous; the lowest uid wins, which is the
	// table's natural order.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE username = $1 OR email = $2
		ORDER BY uid
		LIMIT 1
	`, username, email)

	return scanRecord(row)
}

func (s *PostgresStore) Insert(ctx context.Context, r *Record) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO users (
			username, email, real_name, password, oauth_identifier,
			admin, disable, starttime, endtime, crdate, tstamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING uid
	`,
		r.Username,
		r.Email,
		r.RealName,
		r.Password,
		r.OAuthIdentifier,
		r.Admin,
		r.Disable,
		nullTime(r.StartTime),
		nullTime(r.EndTime),
		r.CrDate,
		r.TStamp,
	).Scan(&r.UID)
}

func (s *PostgresStore) UpdateByUID(
	ctx context.Context,
	uid int64,
	r *Record,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			username = $1,
			email = $2,
			real_name = $3,
			password = $4,
			oauth_identifier = $5,
			admin = $6,
			disable = $7,
			starttime = $8,
			endtime = $9,
			crdate = $10,
			tstamp = $11
		WHERE uid = $12
	`,
		r.Username,
		r.Email,
		r.RealName,
		r.Password,
		r.OAuthIdentifier,
		r.Admin,
		r.Disable,
		nullTime(r.StartTime),
		nullTime(r.EndTime),
		r.CrDate,
		r.TStamp,
		uid,
	)
	return err
}

func (s *PostgresStore) FetchCanonical(
	ctx context.Context,
	username string,
) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE username = $1
		ORDER BY uid
		LIMIT 1
	`, username)

	return scanRecord(row)
}
