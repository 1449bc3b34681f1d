// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MemoryConfig configures the in-process limiter.
type MemoryConfig struct {
	// Window is the counting window. Defaults to DefaultWindow.
	Window time.Duration

	// Max is the number of requests admitted per window. Defaults to DefaultMax.
	Max int

	// Capacity bounds the number of tracked keys. Defaults to DefaultCapacity.
	Capacity int

	// CleanupInterval is the background eviction period.
	// Defaults to DefaultCleanupInterval.
	CleanupInterval time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

type window struct {
	start time.Time
	count int
}

// Memory is a bounded, lock-protected table of per-key windows.
// When the table is full and no window has expired, new keys are rejected.
//
// Memory runs a background goroutine that evicts expired windows.
// Call Close to stop it.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*window
	window   time.Duration
	max      int
	capacity int
	now      func() time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup

	// nil if no registry provided
	keysGauge   prometheus.Gauge
	deniedCount *prometheus.CounterVec
}

var _ Limiter = (*Memory)(nil)

// NewMemory creates an in-process limiter and starts its cleanup goroutine.
func NewMemory(cfg MemoryConfig) *Memory {
	return newMemory(cfg, nil)
}

// NewMemoryWithRegistry creates an in-process limiter and registers its
// tracked-key gauge and denial counter with reg.
func NewMemoryWithRegistry(cfg MemoryConfig, reg prometheus.Registerer) *Memory {
	return newMemory(cfg, reg)
}

func newMemory(cfg MemoryConfig, reg prometheus.Registerer) *Memory {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Memory{
		entries:  make(map[string]*window),
		window:   cfg.Window,
		max:      cfg.Max,
		capacity: cfg.Capacity,
		now:      cfg.Now,
		stopChan: make(chan struct{}),
	}

	if reg != nil {
		m.keysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dailypuzzle_ratelimit_tracked_keys",
			Help: "Current number of keys tracked by the in-memory rate limiter",
		})
		m.deniedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailypuzzle_ratelimit_denied_total",
			Help: "Requests denied by the in-memory rate limiter",
		}, []string{"reason"})
		reg.MustRegister(m.keysGauge, m.deniedCount)
	}

	m.wg.Add(1)
	go m.cleanupLoop(cfg.CleanupInterval)

	return m
}

// Check reports whether a request from key is admitted, counting it if so.
// The read-check-write sequence is atomic per call.
func (m *Memory) Check(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if w, ok := m.entries[key]; ok {
		if now.Sub(w.start) >= m.window {
			w.start = now
			w.count = 1
			return true
		}
		if w.count >= m.max {
			m.deny("limit")
			return false
		}
		w.count++
		return true
	}

	if len(m.entries) >= m.capacity {
		m.evictLocked(now)
		if len(m.entries) >= m.capacity {
			m.deny("capacity")
			return false
		}
	}

	m.entries[key] = &window{start: now, count: 1}
	m.observeLocked()
	return true
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	return m.Check(key), nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Cleanup evicts every window that has already expired.
// It runs on the background goroutine and may also be called directly.
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(m.now())
}

func (m *Memory) evictLocked(now time.Time) {
	for key, w := range m.entries {
		if now.Sub(w.start) >= m.window {
			delete(m.entries, key)
		}
	}
	m.observeLocked()
}

func (m *Memory) observeLocked() {
	if m.keysGauge != nil {
		m.keysGauge.Set(float64(len(m.entries)))
	}
}

func (m *Memory) deny(reason string) {
	if m.deniedCount != nil {
		m.deniedCount.WithLabelValues(reason).Inc()
	}
}

func (m *Memory) cleanupLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

// Close stops the background cleanup goroutine.
// It blocks until the goroutine has stopped.
func (m *Memory) Close() {
	close(m.stopChan)
	m.wg.Wait()
}
