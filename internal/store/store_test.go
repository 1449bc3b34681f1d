// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypuzzle/dailypuzzle/internal/store"
	"github.com/dailypuzzle/dailypuzzle/pkg/errutil"
)

func TestTransactor_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds and routes statements through the tx", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE login_credentials`).
			WithArgs("01J0000000000000000000000").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		tr := store.NewTransactor(mock)
		err = tr.WithinTx(ctx, func(ctx context.Context) error {
			_, err := store.Conn(ctx, mock).Exec(ctx, `UPDATE login_credentials SET used = true WHERE id = $1`, "01J0000000000000000000000")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.New("mint failed")
		err = store.NewTransactor(mock).WithinTx(ctx, func(context.Context) error { return sentinel })
		require.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		tr := store.NewTransactor(mock)
		err = tr.WithinTx(ctx, func(ctx context.Context) error {
			return tr.WithinTx(ctx, func(context.Context) error { return nil })
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err = store.NewTransactor(mock).WithinTx(ctx, func(context.Context) error {
			called = true
			return nil
		})
		errutil.AssertErrorCode(t, err, "TX_BEGIN_FAILED")
		assert.False(t, called)
	})

	t.Run("commit failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
		mock.ExpectRollback()

		err = store.NewTransactor(mock).WithinTx(ctx, func(context.Context) error { return nil })
		errutil.AssertErrorCode(t, err, "TX_COMMIT_FAILED")
	})
}

func TestConn_WithoutTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Same(t, mock, store.Conn(context.Background(), mock))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := store.Connect(context.Background(), store.ConnectConfig{URL: "postgres://%zz"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := store.Connect(ctx, store.ConnectConfig{
		URL:            "postgres://nobody@127.0.0.1:1/none?sslmode=disable",
		ConnectTimeout: 200 * time.Millisecond,
		MaxRetries:     1,
		BaseBackoff:    10 * time.Millisecond,
	})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
	errutil.AssertErrorContext(t, err, "attempts", 2)
}
