package tokensource

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenType marks tokens produced by NewSessionSource.
const TokenType = "Session"

// sessionLifetime is the validity advertised in the sid_guard cookie.
const sessionLifetime = 60 * 24 * time.Hour

// DefaultHosts are the upstream hosts that receive session cookies.
var DefaultHosts = []string{"jimeng.jianying.com"}

// ErrNoToken is returned when a request carries no usable session token.
var ErrNoToken = errors.New("no session token")

// NewSessionSource wraps a session token in a static token source.
// Session tokens never expire client side.
func NewSessionSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   TokenType,
	})
}

// Transport attaches the session cookies of Source to requests whose host is
// in Hosts. Requests to other hosts pass through untouched.
type Transport struct {
	Source oauth2.TokenSource
	Base   http.RoundTripper
	Hosts  []string
	// Now stamps the sid_guard cookie. Nil uses time.Now.
	Now func() time.Time
}

// NewTransport creates a Transport for the default upstream hosts.
// A nil base uses http.DefaultTransport.
func NewTransport(source oauth2.TokenSource, base http.RoundTripper) *Transport {
	return &Transport{Source: source, Base: base, Hosts: DefaultHosts}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if !t.matches(req.URL) {
		return base.RoundTrip(req)
	}

	token, err := t.Source.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining session token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoToken
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	for _, c := range sessionCookies(token.AccessToken, now()) {
		r.AddCookie(c)
	}
	return base.RoundTrip(r)
}

func (t *Transport) matches(u *url.URL) bool {
	host := u.Hostname()
	for _, h := range t.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func sessionCookies(token string, now time.Time) []*http.Cookie {
	guard := fmt.Sprintf("%s|%d|%d|%s", token, now.Unix(), int(sessionLifetime.Seconds()),
		now.Add(sessionLifetime).UTC().Format("Mon,+02-Jan-2006+15:04:05+GMT"))

	return []*http.Cookie{
		{Name: "sessionid", Value: token},
		{Name: "sessionid_ss", Value: token},
		{Name: "sid_tt", Value: token},
		{Name: "sid_guard", Value: url.QueryEscape(guard)},
	}
}
