// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package mail

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/samber/oops"
)

// Console writes messages to a writer instead of sending them. It is the
// development sender; the output contains live login secrets.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Sender = (*Console)(nil)

// NewConsole returns a Console writing to w, or os.Stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Send prints msg's plain-text body between banner lines.
func (c *Console) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const rule = "=============================================="
	_, err := fmt.Fprintf(c.w, "\n%s\nTo: %s\nSubject: %s\n\n%s%s\n\n", rule, msg.To, msg.Subject, msg.Text, rule)
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("provider", "console").Wrap(err)
	}
	return nil
}
