package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
)

// PostgresRepo projeta os eventos do engine nas tabelas bets, bet_events e claimables.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// Apply grava o envelope no log e aplica o efeito na projeção, numa transação.
// Devolve applied=false quando o envelope já tinha sido processado.
func (r *PostgresRepo) Apply(ctx context.Context, env events.Envelope, ev events.Event) (applied bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bet_events (id, seq, type, key, payload, ts)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		env.ID, env.Seq, env.Type, env.Key, []byte(env.Payload), env.Ts,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if err := project(ctx, tx, ev); err != nil {
		return false, fmt.Errorf("project %s: %w", env.Type, err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func project(ctx context.Context, tx *sql.Tx, ev events.Event) error {
	var err error
	switch e := ev.(type) {
	case *events.BetPlaced:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bets (id, bettor, choice, wager, asset, request_id, state, requested_at)
			VALUES ($1,$2,$3,$4,$5,$6,'REQUESTED',$7)
			ON CONFLICT (id) DO NOTHING`,
			e.BetID, e.Bettor, e.Choice, e.Wager, e.Asset, e.RequestID, time.UnixMilli(e.TsUnixMs).UTC(),
		)
	case *events.BetSettled:
		_, err = tx.ExecContext(ctx, `
			UPDATE bets
			SET state='SETTLED', result=$2, payout=$3, fee=$4, player_won=$5, closed_at=$6, updated_at=NOW()
			WHERE id=$1 AND state='REQUESTED'`,
			e.BetID, e.Result, e.Payout, e.Fee, e.PlayerWon, time.UnixMilli(e.TsUnixMs).UTC(),
		)
	case *events.BetRefunded:
		_, err = tx.ExecContext(ctx, `
			UPDATE bets
			SET state='REFUNDED', closed_at=$2, updated_at=NOW()
			WHERE id=$1 AND state='REQUESTED'`,
			e.BetID, time.UnixMilli(e.TsUnixMs).UTC(),
		)
	case *events.ClaimableCredited:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO claimables (account, amount, updated_at)
			VALUES ($1,$2,NOW())
			ON CONFLICT (account) DO UPDATE SET
			  amount = claimables.amount + EXCLUDED.amount,
			  updated_at = NOW()`,
			e.Account, e.Amount,
		)
	case *events.Claimed:
		// Claim saca o crédito inteiro
		_, err = tx.ExecContext(ctx, `UPDATE claimables SET amount=0, updated_at=NOW() WHERE account=$1`, e.Account)
	}
	// ConfigChanged, AdminTransferred e Withdrawn ficam só no log
	return err
}
