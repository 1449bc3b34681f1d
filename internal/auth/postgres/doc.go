// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package postgres implements the auth repositories on PostgreSQL.
// Every statement goes through store.Conn, so repository calls made inside
// store.Transactor.WithinTx join the caller's transaction.
package postgres
