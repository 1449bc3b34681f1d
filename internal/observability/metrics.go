// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	CredentialsIssued prometheus.Counter
	Logins            *prometheus.CounterVec
	Guesses           *prometheus.CounterVec
	HintsRevealed     prometheus.Counter
	SweptRows         *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// NewMetrics creates the application collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CredentialsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailypuzzle_credentials_issued_total",
			Help: "Login credentials issued",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailypuzzle_logins_total",
			Help: "Login validations by method and result",
		}, []string{"method", "result"}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailypuzzle_guesses_total",
			Help: "Submitted guesses by result",
		}, []string{"result"}),
		HintsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailypuzzle_hints_revealed_total",
			Help: "Hint reveal requests",
		}),
		SweptRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailypuzzle_swept_rows_total",
			Help: "Expired rows deleted by the sweeper",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailypuzzle_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		m.CredentialsIssued,
		m.Logins,
		m.Guesses,
		m.HintsRevealed,
		m.SweptRows,
		m.HTTPRequests,
	)
	return m
}

// RecordCredentialIssued counts one issued credential.
func (m *Metrics) RecordCredentialIssued() {
	if m == nil {
		return
	}
	m.CredentialsIssued.Inc()
}

// RecordLogin counts a validation attempt. method is "link" or "code".
func (m *Metrics) RecordLogin(method, result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(method, result).Inc()
}

// RecordGuess counts a guess by result.
func (m *Metrics) RecordGuess(result string) {
	if m == nil {
		return
	}
	m.Guesses.WithLabelValues(result).Inc()
}

// RecordHint counts a hint reveal.
func (m *Metrics) RecordHint() {
	if m == nil {
		return
	}
	m.HintsRevealed.Inc()
}

// RecordSwept adds deleted rows of kind. It matches auth.SweeperConfig.OnSwept.
func (m *Metrics) RecordSwept(kind string, deleted int64) {
	if m == nil || deleted <= 0 {
		return
	}
	m.SweptRows.WithLabelValues(kind).Add(float64(deleted))
}

// RecordRequest counts a finished HTTP request.
func (m *Metrics) RecordRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
