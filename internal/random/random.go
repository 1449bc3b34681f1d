// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package random provides the cryptographically strong byte sources and
// encoders behind every login credential and session token.
//
// Each Pool is an independent ChaCha8 generator seeded from crypto/rand.
// Login credentials and sessions draw from separate pools so that exposing
// the state of one generator reveals nothing about tokens drawn from the
// other.
package random

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/samber/oops"
)

// CodeAlphabet is the 32-symbol alphabet used for human-enterable codes.
// It omits I, O, 0 and 1.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// reseedAfter bounds how many bytes a pool emits before drawing a fresh seed.
const reseedAfter = 1 << 20

// Source is a cryptographically strong byte source.
type Source = io.Reader

// Pool is a ChaCha8 generator seeded from the operating system.
// It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	rng     *rand.ChaCha8
	emitted int
	seed    func([]byte) error
}

// NewPool creates a pool seeded from crypto/rand.
func NewPool() (*Pool, error) {
	return newPool(func(b []byte) error {
		_, err := io.ReadFull(cryptorand.Reader, b)
		return err
	})
}

func newPool(seed func([]byte) error) (*Pool, error) {
	p := &Pool{seed: seed}
	if err := p.reseed(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) reseed() error {
	var s [32]byte
	if err := p.seed(s[:]); err != nil {
		return oops.Code("RANDOM_SEED_FAILED").
			With("operation", "seed pool").
			Wrap(err)
	}
	p.rng = rand.NewChaCha8(s)
	p.emitted = 0
	return nil
}

// Read fills b with random bytes.
func (p *Pool) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.emitted+len(b) > reseedAfter {
		if err := p.reseed(); err != nil {
			return 0, err
		}
	}
	n, err := p.rng.Read(b)
	p.emitted += n
	return n, err
}

// Hex draws n bytes from src and returns them hex-encoded (2n characters).
func Hex(src Source, n int) (string, error) {
	if n <= 0 {
		return "", oops.Code("RANDOM_INVALID_LENGTH").With("bytes", n).Errorf("byte count must be positive")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", oops.Code("RANDOM_READ_FAILED").
			With("requested_bytes", n).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// Code draws a string of the given length whose characters come from
// alphabet. Bytes that would bias the distribution are rejected and redrawn.
func Code(src Source, length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", oops.Code("RANDOM_INVALID_LENGTH").With("length", length).Errorf("code length must be positive")
	}
	size := len(alphabet)
	if size < 2 || size > 256 {
		return "", oops.Code("RANDOM_INVALID_ALPHABET").With("alphabet_size", size).Errorf("alphabet must have 2..256 symbols")
	}
	// Largest multiple of size that fits in a byte.
	limit := 256 - 256%size

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", oops.Code("RANDOM_READ_FAILED").
				With("requested_bytes", len(buf)).
				Wrap(err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%size])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
