// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
	"github.com/dailypuzzle/dailypuzzle/internal/auth/postgres"
	"github.com/dailypuzzle/dailypuzzle/internal/store"
)

func TestIntegration_EnsureByEmailConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	const n = 10
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := repo.EnsureByEmail(ctx, "race@example.com")
			if assert.NoError(t, err) {
				ids[i] = u.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestIntegration_CredentialLifecycle(t *testing.T) {
	ctx := context.Background()
	creds := postgres.NewCredentialRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	c, err := auth.NewCredential("life@example.com", auth.ForNewEmail{Email: "life@example.com"},
		auth.HashToken("link-life"), auth.HashCode("ABC234"), now, now.Add(15*time.Minute))
	require.NoError(t, err)
	require.NoError(t, creds.Create(ctx, c))

	got, err := creds.GetActiveByLinkHash(ctx, c.LinkHash, now)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, auth.ForNewEmail{Email: "life@example.com"}, got.Owner)

	for want := 1; want <= 2; want++ {
		n, err := creds.RecordCodeAttempt(ctx, c.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	_, err = creds.RecordCodeAttempt(ctx, c.ID, 2)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, creds.Consume(ctx, c.ID, now))
	assert.ErrorIs(t, creds.Consume(ctx, c.ID, now), auth.ErrNotFound)

	_, err = creds.GetLatestActiveByEmail(ctx, "life@example.com", now)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	deleted, err := creds.DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
}

func TestIntegration_TransactionRollsBackProvisioning(t *testing.T) {
	ctx := context.Background()
	users := postgres.NewUserRepository(testPool)
	tx := store.NewTransactor(testPool)
	boom := errors.New("mint failed")

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := users.EnsureByEmail(ctx, "rollback@example.com"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = users.GetByEmail(ctx, "rollback@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestIntegration_SessionResolve(t *testing.T) {
	ctx := context.Background()
	users := postgres.NewUserRepository(testPool)
	sessions := postgres.NewSessionRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	u, err := users.EnsureByEmail(ctx, "session@example.com")
	require.NoError(t, err)
	require.NoError(t, users.UpdateDisplayName(ctx, u.ID, "Sess"))

	s, err := auth.NewSession(u.ID, auth.HashToken("session-token"), now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, s))

	got, err := sessions.GetUserByTokenHash(ctx, s.TokenHash, now)
	require.NoError(t, err)
	assert.Equal(t, "Sess", got.DisplayName)

	_, err = sessions.GetUserByTokenHash(ctx, s.TokenHash, now.Add(time.Hour))
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, sessions.DeleteByTokenHash(ctx, s.TokenHash))
	_, err = sessions.GetUserByTokenHash(ctx, s.TokenHash, now)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}
