// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dailypuzzle/dailypuzzle/internal/store/pgtest"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()
	db, err := pgtest.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start test database: %v\n", err)
		os.Exit(1)
	}
	testPool = db.Pool

	code := m.Run()
	db.Close(ctx)
	os.Exit(code)
}
