// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package mail renders and delivers login emails.
package mail

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"net/url"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/samber/oops"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LoginSubject is the subject line of login emails.
const LoginSubject = "Your Daily Puzzle login link"

// LoginPath is the route the magic link points at.
const LoginPath = "/auth"

var loginText = template.Must(template.New("login.txt").Parse(`Log in to Daily Puzzle:

{{.Link}}

Or enter this code on the login page: {{.Code}}

The link and code expire in {{.TTL}}.
`))

var loginHTML = htmltemplate.Must(htmltemplate.New("login.html").Parse(
	`<p>Click the link below to log in to Daily Puzzle:</p>` +
		`<p><a href="{{.Link}}">Log in to Daily Puzzle</a></p>` +
		`<p>Or enter this code on the login page: <strong>{{.Code}}</strong></p>` +
		`<p>This link expires in {{.TTL}}.</p>`))

type loginData struct {
	Link string
	Code string
	TTL  string
}

// LoginLink builds <baseURL>/auth?token=<token>.
func LoginLink(baseURL, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + LoginPath)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", oops.Code("MAIL_INVALID_BASE_URL").With("base_url", baseURL).
			Errorf("base url must be absolute")
	}
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// LoginMessage renders the email carrying the magic link and the code.
func LoginMessage(to, baseURL, linkToken, code string, ttl time.Duration) (Message, error) {
	link, err := LoginLink(baseURL, linkToken)
	if err != nil {
		return Message{}, err
	}
	data := loginData{Link: link, Code: code, TTL: humanDuration(ttl)}

	var text, html bytes.Buffer
	if err := loginText.Execute(&text, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	if err := loginHTML.Execute(&html, data); err != nil {
		return Message{}, oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	return Message{To: to, Subject: LoginSubject, Text: text.String(), HTML: html.String()}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return strconv.Itoa(int(d/time.Hour)) + " hours"
	case d >= time.Minute:
		m := int(d.Round(time.Minute) / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return strconv.Itoa(m) + " minutes"
	default:
		return d.String()
	}
}
