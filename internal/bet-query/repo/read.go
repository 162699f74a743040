package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

var ErrNotFound = errors.New("not found")

// ReadRepo lê a projeção de apostas mantida pelo bet-indexer.
type ReadRepo struct {
	DB *sql.DB
}

func NewReadRepo(db *sql.DB) *ReadRepo { return &ReadRepo{DB: db} }

const betColumns = `
	id, bettor, choice, wager::text, asset, request_id::text, state,
	COALESCE(result, ''), player_won, payout::text, fee::text,
	to_char(requested_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
	COALESCE(to_char(closed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), ''),
	to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`

type scanner interface {
	Scan(dest ...any) error
}

func scanBet(s scanner) (views.BetView, error) {
	var (
		v   views.BetView
		won sql.NullBool
	)
	err := s.Scan(&v.BetID, &v.Bettor, &v.Choice, &v.Wager, &v.Asset, &v.RequestID, &v.State,
		&v.Result, &won, &v.Payout, &v.Fee, &v.RequestedAt, &v.ClosedAt, &v.UpdatedAt)
	if err != nil {
		return v, err
	}
	if won.Valid {
		w := won.Bool
		v.PlayerWon = &w
	}
	return v, nil
}

func (r *ReadRepo) GetBet(ctx context.Context, id uint64) (views.BetView, error) {
	v, err := scanBet(r.DB.QueryRowContext(ctx, `SELECT`+betColumns+` FROM bets WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

func (r *ReadRepo) GetBetByRequest(ctx context.Context, requestID string) (views.BetView, error) {
	v, err := scanBet(r.DB.QueryRowContext(ctx, `SELECT`+betColumns+` FROM bets WHERE request_id=$1`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

// ListByBettor lista as apostas de um jogador, mais recentes primeiro.
// state vazio = todas.
func (r *ReadRepo) ListByBettor(ctx context.Context, bettor, state string, limit int) ([]views.BetView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT`+betColumns+`
		FROM bets
		WHERE bettor=$1 AND ($2 = '' OR state=$2)
		ORDER BY id DESC
		LIMIT $3`, bettor, state, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []views.BetView{}
	for rows.Next() {
		v, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *ReadRepo) Claimable(ctx context.Context, account string) (string, error) {
	var amt string
	err := r.DB.QueryRowContext(ctx, `SELECT amount::text FROM claimables WHERE account=$1`, account).Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return "0", nil
	}
	return amt, err
}
