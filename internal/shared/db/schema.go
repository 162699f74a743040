package db

import (
	"context"
	"database/sql"
	"fmt"
)

// valores monetários em NUMERIC(78,0): unidades base de até 256 bits
const schemaSQL = `
CREATE TABLE IF NOT EXISTS bets (
    id            BIGINT PRIMARY KEY,
    bettor        TEXT NOT NULL,
    choice        TEXT NOT NULL,
    wager         NUMERIC(78,0) NOT NULL,
    asset         TEXT NOT NULL,
    request_id    NUMERIC(78,0) NOT NULL UNIQUE,
    state         TEXT NOT NULL DEFAULT 'REQUESTED',
    result        TEXT,
    payout        NUMERIC(78,0) NOT NULL DEFAULT 0,
    fee           NUMERIC(78,0) NOT NULL DEFAULT 0,
    player_won    BOOLEAN,
    requested_at  TIMESTAMPTZ NOT NULL,
    closed_at     TIMESTAMPTZ,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_bets_bettor_state ON bets(bettor, state);

CREATE TABLE IF NOT EXISTS bet_events (
    id          UUID PRIMARY KEY,
    seq         BIGINT NOT NULL,
    type        TEXT NOT NULL,
    key         TEXT NOT NULL,
    payload     JSONB NOT NULL,
    ts          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bet_events_key ON bet_events(key, seq);

CREATE TABLE IF NOT EXISTS claimables (
    account     TEXT PRIMARY KEY,
    amount      NUMERIC(78,0) NOT NULL DEFAULT 0,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate cria as tabelas da projeção; idempotente.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
