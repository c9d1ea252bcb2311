package restock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrProductNotFound = errors.New("product not found")

// ActionRestock is the accion value recorded for every applied restock.
const ActionRestock = "reabastecer"

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type ApplyResult struct {
	NewStock int64
	// AlreadyApplied is set when a ledger row with the same requestId
	// exists; the stock mutation was skipped.
	AlreadyApplied bool
}

type Repository struct {
	pool DBPool
}

func NewRepository(pool DBPool) *Repository {
	return &Repository{pool: pool}
}

// Apply performs the restock inside a single transaction:
//
//  1. check the ledger for the requestId (idempotency key) and skip the
//     mutation when the request was already committed,
//  2. read the current stock with an exclusive row lock,
//  3. write the incremented stock,
//  4. append the ledger row.
//
// The row lock serializes concurrent restocks for the same product across
// worker instances; every exit path either commits or rolls back.
func (r *Repository) Apply(ctx context.Context, req Request) (ApplyResult, error) {
	res := ApplyResult{}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var applied bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM inventario_historial WHERE request_id=$1
		)
	`, req.RequestID).Scan(&applied)
	if err != nil {
		return res, fmt.Errorf("check ledger: %w", err)
	}
	if applied {
		res.AlreadyApplied = true
		if err := tx.Commit(ctx); err != nil {
			return res, fmt.Errorf("commit: %w", err)
		}
		return res, nil
	}

	var stock int64
	err = tx.QueryRow(ctx, `
		SELECT stock
		FROM productos
		WHERE id=$1
		FOR UPDATE
	`, req.ProductID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return res, ErrProductNotFound
		}
		return res, fmt.Errorf("select stock: %w", err)
	}

	res.NewStock = stock + req.Quantity

	_, err = tx.Exec(ctx, `
		UPDATE productos
		SET stock=$2, updated_at=now()
		WHERE id=$1
	`, req.ProductID, res.NewStock)
	if err != nil {
		return res, fmt.Errorf("update stock: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO inventario_historial (producto_id, cantidad, accion, request_id)
		VALUES ($1, $2, $3, $4)
	`, req.ProductID, req.Quantity, ActionRestock, req.RequestID)
	if err != nil {
		return res, fmt.Errorf("append ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
