package db

import (
	"context"
)

const usersMigration = `
CREATE TABLE IF NOT EXISTS users (
    uid bigserial PRIMARY KEY,
    username text NOT NULL DEFAULT '',
    email text NOT NULL DEFAULT '',
    real_name text NOT NULL DEFAULT '',
    password text NOT NULL DEFAULT '',
    oauth_identifier text NOT NULL DEFAULT '',
    admin boolean NOT NULL DEFAULT false,
    disable boolean NOT NULL DEFAULT false,
    starttime timestamptz,
    endtime timestamptz,
    crdate timestamptz NOT NULL DEFAULT NOW(),
    tstamp timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_oauth_identifier_unique
ON users (oauth_identifier)
WHERE oauth_identifier <> '';

CREATE INDEX IF NOT EXISTS users_username_idx ON users (username);
CREATE INDEX IF NOT EXISTS users_email_idx ON users (email);
`

func RunUsersMigration(ctx context.Context, db *DB) error {
	_, err := db.ExecContext(ctx, usersMigration)
	return err
}
