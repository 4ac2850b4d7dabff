package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// CreditLedgerPG implements domain.CreditLedger. Consumption is a single
// guarded statement: the balance row only updates when it can cover the
// amount, and the transaction row is appended off that same update, so the
// decrement and the log entry land atomically.
type CreditLedgerPG struct {
	pool *pgxpool.Pool
}

func NewCreditLedger(pool *pgxpool.Pool) *CreditLedgerPG {
	return &CreditLedgerPG{pool: pool}
}

// Balance returns the user's current balance; unknown users have zero.
func (r *CreditLedgerPG) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT balance FROM credit_balances WHERE user_id = $1;`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// Consume atomically decrements the balance and appends the consumption
// transaction. Returns domain.ErrInsufficientCredits when the balance
// cannot cover the amount.
func (r *CreditLedgerPG) Consume(ctx context.Context, userID string, amount int, reason, jobRef string) error {
	query := `
WITH spend AS (
	UPDATE credit_balances
	SET balance = balance - $2, updated_at = now()
	WHERE user_id = $1 AND balance >= $2
	RETURNING user_id
)
INSERT INTO credit_transactions (user_id, delta, reason, job_reference)
SELECT user_id, -$2, $3, $4 FROM spend
RETURNING id;
`
	var txID int64
	err := r.pool.QueryRow(ctx, query, userID, amount, reason, jobRef).Scan(&txID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInsufficientCredits
		}
		return err
	}
	return nil
}

// Grant credits the user's balance and appends the grant transaction.
func (r *CreditLedgerPG) Grant(ctx context.Context, userID string, amount int, reason string) error {
	query := `
WITH topup AS (
	INSERT INTO credit_balances (user_id, balance)
	VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE
	SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = now()
	RETURNING user_id
)
INSERT INTO credit_transactions (user_id, delta, reason)
SELECT user_id, $2, $3 FROM topup
RETURNING id;
`
	var txID int64
	return r.pool.QueryRow(ctx, query, userID, amount, reason).Scan(&txID)
}

// History returns the user's transaction log, newest first.
func (r *CreditLedgerPG) History(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, delta, reason, job_reference, created_at
FROM credit_transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Delta, &tx.Reason, &tx.JobReference, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
