package restock

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	return Request{RequestID: "req-1", ProductID: 42, Quantity: 4}
}

func TestRepositoryApply(t *testing.T) {
	ctx := context.Background()
	req := testRequest()

	t.Run("applies restock atomically", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(req.RequestID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT stock`).
			WithArgs(req.ProductID).
			WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(int64(5)))
		mock.ExpectExec(`UPDATE productos`).
			WithArgs(req.ProductID, int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`INSERT INTO inventario_historial`).
			WithArgs(req.ProductID, req.Quantity, ActionRestock, req.RequestID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
		mock.ExpectRollback() // deferred no-op after commit

		res, err := NewRepository(mock).Apply(ctx, req)
		require.NoError(t, err)
		require.Equal(t, int64(9), res.NewStock)
		require.False(t, res.AlreadyApplied)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips mutation when request already applied", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(req.RequestID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectCommit()
		mock.ExpectRollback()

		res, err := NewRepository(mock).Apply(ctx, req)
		require.NoError(t, err)
		require.True(t, res.AlreadyApplied)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(req.RequestID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT stock`).
			WithArgs(req.ProductID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err = NewRepository(mock).Apply(ctx, req)
		require.ErrorIs(t, err, ErrProductNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure rolls back without ledger write", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(req.RequestID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT stock`).
			WithArgs(req.ProductID).
			WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(int64(5)))
		mock.ExpectExec(`UPDATE productos`).
			WithArgs(req.ProductID, int64(9)).
			WillReturnError(errors.New("update fail"))
		mock.ExpectRollback()

		_, err = NewRepository(mock).Apply(ctx, req)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure surfaces", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("cannot begin"))

		_, err = NewRepository(mock).Apply(ctx, req)
		require.Error(t, err)
	})

	t.Run("commit failure surfaces", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(req.RequestID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(`SELECT stock`).
			WithArgs(req.ProductID).
			WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(int64(5)))
		mock.ExpectExec(`UPDATE productos`).
			WithArgs(req.ProductID, int64(9)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`INSERT INTO inventario_historial`).
			WithArgs(req.ProductID, req.Quantity, ActionRestock, req.RequestID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit().WillReturnError(errors.New("commit fail"))
		mock.ExpectRollback()

		_, err = NewRepository(mock).Apply(ctx, req)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
