// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dailypuzzle/dailypuzzle/internal/config"
)

const seedFixture = "../../internal/seed/testdata/puzzles.yaml"

// syncBuffer is a bytes.Buffer safe for the server goroutines and the test
// to share.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// isolate keeps a developer's config file out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

// testConfig loads a memory-store config listening on a free port with
// metrics disabled. env entries override that.
func testConfig(t *testing.T, env ...string) *config.Config {
	t.Helper()
	isolate(t)
	base := []string{
		"DAILYPUZZLE_STORE_BACKEND=memory",
		"DAILYPUZZLE_HTTP_ADDR=127.0.0.1:0",
		"DAILYPUZZLE_METRICS_ADDR=",
		"DAILYPUZZLE_LOG_LEVEL=error",
	}
	cfg, err := config.Load(config.LoadOptions{Environ: append(base, env...)})
	require.NoError(t, err)
	return cfg
}

func newTestCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	return cmd
}

// execute runs cmd with args and returns its combined output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
