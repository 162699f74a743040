package dto

type PlaceBetResponse struct {
	BetID     uint64 `json:"bet_id"`
	RequestID string `json:"request_id"`
	State     string `json:"state"` // REQUESTED
}

type BetResponse struct {
	BetID       uint64 `json:"bet_id"`
	Bettor      string `json:"bettor"`
	Choice      string `json:"choice"`
	Wager       string `json:"wager"`
	WagerBase   string `json:"wager_base"`
	State       string `json:"state"`
	RequestID   string `json:"request_id"`
	RequestedAt string `json:"requested_at"`
	Result      string `json:"result,omitempty"`
	PlayerWon   *bool  `json:"player_won,omitempty"`
	Payout      string `json:"payout,omitempty"`
	Fee         string `json:"fee,omitempty"`
	ClosedAt    string `json:"closed_at,omitempty"`
	RefundAfter string `json:"refund_after,omitempty"`
}

type AccountResponse struct {
	Address       string `json:"address"`
	Balance       string `json:"balance"`
	Claimable     string `json:"claimable"`
	ClaimableBase string `json:"claimable_base"`
	PendingBets   uint32 `json:"pending_bets"`
}

type ParamsResponse struct {
	Address        string `json:"address"`
	Admin          string `json:"admin"`
	Asset          string `json:"asset"`
	AssetMode      string `json:"asset_mode"`
	FeeBps         uint32 `json:"fee_bps"`
	MinWager       string `json:"min_wager"`
	MaxWager       string `json:"max_wager"`
	MaxPendingBets uint32 `json:"max_pending_bets"`
	RefundTimeout  string `json:"refund_timeout"`
	RefundPolicy   string `json:"refund_policy"`
	PayoutPolicy   string `json:"payout_policy"`
	FeeCollector   string `json:"fee_collector"`
	VRF            string `json:"vrf"`
	Paused         bool   `json:"paused"`
}

type StatsResponse struct {
	Bets           uint64 `json:"bets"`
	Pending        int    `json:"pending"`
	PendingEscrow  string `json:"pending_escrow"`
	TotalClaimable string `json:"total_claimable"`
	PoolBalance    string `json:"pool_balance"`
	Residual       string `json:"residual"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
