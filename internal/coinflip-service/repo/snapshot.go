package repo

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/coinflip-platform-poc/internal/engine"
	"github.com/radieske/coinflip-platform-poc/internal/shared/money"
)

// Snapshots lê a projeção do bet-indexer para reconstruir o engine no boot.
type Snapshots struct{ db *sql.DB }

func NewSnapshots(db *sql.DB) *Snapshots { return &Snapshots{db: db} }

// Load monta o snapshot a partir das tabelas bets, claimables e bet_events.
func (s *Snapshots) Load(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot

	bets, err := s.bets(ctx)
	if err != nil {
		return snap, err
	}
	snap.Bets = bets
	for _, b := range bets {
		if b.ID > snap.NextID {
			snap.NextID = b.ID
		}
	}

	if snap.Claimable, err = s.claimables(ctx); err != nil {
		return snap, err
	}

	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM bet_events`).Scan(&seq); err != nil {
		return snap, fmt.Errorf("load seq: %w", err)
	}
	if seq.Valid {
		snap.Seq = uint64(seq.Int64)
	}
	return snap, nil
}

func (s *Snapshots) bets(ctx context.Context) ([]engine.Bet, error) {
	const q = `
		SELECT id, bettor, choice, wager::text, request_id::text, state,
		       COALESCE(result, ''), payout::text, fee::text, requested_at, closed_at
		FROM bets
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load bets: %w", err)
	}
	defer rows.Close()

	var out []engine.Bet
	for rows.Next() {
		var (
			id                            int64
			bettor, choice, state, result string
			wager, requestID, payout, fee string
			requestedAt                   time.Time
			closedAt                      sql.NullTime
		)
		if err := rows.Scan(&id, &bettor, &choice, &wager, &requestID, &state, &result, &payout, &fee, &requestedAt, &closedAt); err != nil {
			return nil, err
		}
		b, err := toBet(id, bettor, choice, wager, requestID, state, result, payout, fee)
		if err != nil {
			return nil, fmt.Errorf("bet %d: %w", id, err)
		}
		b.RequestedAt = requestedAt
		if closedAt.Valid {
			b.ClosedAt = closedAt.Time
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func toBet(id int64, bettor, choice, wager, requestID, state, result, payout, fee string) (engine.Bet, error) {
	b := engine.Bet{ID: uint64(id), Bettor: common.HexToAddress(bettor)}
	var err error
	if b.Choice, err = engine.ParseChoice(choice); err != nil {
		return b, err
	}
	if b.State, err = engine.ParseState(state); err != nil {
		return b, err
	}
	if result != "" {
		if b.Result, err = engine.ParseChoice(result); err != nil {
			return b, err
		}
	}
	if b.Wager, err = money.ParseBase(wager); err != nil {
		return b, err
	}
	if b.RequestID, err = money.ParseBase(requestID); err != nil {
		return b, err
	}
	if b.Payout, err = money.ParseBase(payout); err != nil {
		return b, err
	}
	if b.Fee, err = money.ParseBase(fee); err != nil {
		return b, err
	}
	return b, nil
}

func (s *Snapshots) claimables(ctx context.Context) (map[common.Address]*big.Int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account, amount::text FROM claimables WHERE amount > 0`)
	if err != nil {
		return nil, fmt.Errorf("load claimables: %w", err)
	}
	defer rows.Close()

	out := make(map[common.Address]*big.Int)
	for rows.Next() {
		var account, amount string
		if err := rows.Scan(&account, &amount); err != nil {
			return nil, err
		}
		amt, err := money.ParseBase(amount)
		if err != nil {
			return nil, fmt.Errorf("claimable %s: %w", account, err)
		}
		out[common.HexToAddress(account)] = amt
	}
	return out, rows.Err()
}
