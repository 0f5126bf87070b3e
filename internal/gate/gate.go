// Package gate decides, before any route runs, whether a request may pass.
// It only checks the session cookie signature and expiry and never touches
// the database, so it can run in the API process or in front of it.
package gate

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ErlanBelekov/docgate/internal/metrics"
	"github.com/ErlanBelekov/docgate/internal/session"
)

// LandingPath is where unauthenticated requests are sent.
const LandingPath = "/about"

// DefaultPublicPrefixes bypass the session check entirely.
var DefaultPublicPrefixes = []string{
	"/about",
	"/login",
	"/verify",
	"/api/auth",
	"/api/documents",
	"/static",
	"/images",
	"/data",
	"/favicon.ico",
}

type Decision int

const (
	Public Decision = iota
	Allowed
	Redirected
)

func (d Decision) String() string {
	switch d {
	case Public:
		return "public"
	case Allowed:
		return "allowed"
	default:
		return "redirected"
	}
}

type Gate struct {
	secret   []byte
	prefixes []string
	now      func() time.Time
}

// New returns a gate over prefixes; nil means DefaultPublicPrefixes.
func New(secret []byte, prefixes []string) *Gate {
	if prefixes == nil {
		prefixes = DefaultPublicPrefixes
	}
	return &Gate{secret: secret, prefixes: prefixes, now: time.Now}
}

func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// IsPublic matches whole path segments: "/about" and "/about/team" are
// public, "/aboutx" is not. A path that is not in canonical form, such as
// "/about/../api/me", is never public.
func (g *Gate) IsPublic(p string) bool {
	if p != CleanPath(p) {
		return false
	}
	for _, prefix := range g.prefixes {
		if p == prefix || strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// CleanPath resolves dot-segments and repeated slashes in an already
// decoded URL path. A trailing slash is kept.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// Decide classifies r and records the outcome in gate_decisions_total.
func (g *Gate) Decide(r *http.Request) Decision {
	d := g.decide(r)
	metrics.GateDecisionsTotal.WithLabelValues(d.String()).Inc()
	return d
}

func (g *Gate) decide(r *http.Request) Decision {
	if g.IsPublic(r.URL.Path) {
		return Public
	}
	cred := session.FromRequest(r)
	if cred == "" {
		return Redirected
	}
	if _, ok := session.Verify(g.secret, cred, g.now()); !ok {
		return Redirected
	}
	return Allowed
}
