package jimeng

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// maxFetchRedirects bounds redirects followed while downloading an image.
const maxFetchRedirects = 5

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// newFetchClient returns the client for image downloads. Unless
// allowPrivate is set, every connection, redirects included, must go to a
// public unicast address; the check runs on the resolved address so DNS
// names cannot point around it. Environment proxies are ignored.
func newFetchClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = rejectNonPublic
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          16,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
		CheckRedirect: limitRedirects,
	}
}

func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxFetchRedirects {
		return errors.New("too many redirects")
	}
	return nil
}

func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceNotAllowed, err)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceNotAllowed, err)
	}
	if !isPublicAddr(addr) {
		return fmt.Errorf("%w: %s is not a public address", ErrSourceNotAllowed, addr)
	}
	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!sharedAddressSpace.Contains(addr)
}
