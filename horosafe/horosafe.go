// Package horosafe holds the input guards used at the service edges:
// endpoint URL checks (SSRF), identifier validation for ids that arrive in
// URL paths and tool arguments, and bounded reads of upstream bodies.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxResponseBody caps reads of upstream response bodies (1 MiB).
const MaxResponseBody int64 = 1 << 20

// MaxIdentifierLen bounds session and document ids.
const MaxIdentifierLen = 128

var (
	// ErrUnsafeScheme is returned for an endpoint that is not http or https.
	ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")
	// ErrPrivateAddress is returned when an endpoint resolves to a private or loopback address.
	ErrPrivateAddress = errors.New("horosafe: URL targets a private or loopback address")
	// ErrBadIdentifier is returned by ValidateIdentifier.
	ErrBadIdentifier = errors.New("horosafe: invalid identifier")
	// ErrTooLarge is returned by LimitedReadAll when the limit is exceeded.
	ErrTooLarge = errors.New("horosafe: body too large")
)

// ValidateEndpoint checks that rawURL is an absolute http(s) URL with a host.
// Unless allowPrivate is set, the host must not be (or resolve to) a private,
// loopback or link-local address.
func ValidateEndpoint(rawURL string, allowPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("horosafe: URL %q has no host", rawURL)
	}
	if allowPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivate(ip) {
			return ErrPrivateAddress
		}
		return nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		// Unresolvable now; the request itself will fail if it stays that way.
		return nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivate(ip) {
			return ErrPrivateAddress
		}
	}
	return nil
}

// ValidateIdentifier accepts ASCII letters, digits, '_', '-' and '.', up to
// MaxIdentifierLen bytes.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrBadIdentifier)
	}
	if len(s) > MaxIdentifierLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrBadIdentifier, MaxIdentifierLen)
	}
	for _, r := range s {
		if !identChar(r) {
			return fmt.Errorf("%w: character %q", ErrBadIdentifier, r)
		}
	}
	return nil
}

// LimitedReadAll reads r to the end, failing with ErrTooLarge past maxBytes.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

func identChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

var privateNets = func() []*net.IPNet {
	var out []*net.IPNet
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "169.254.0.0/16", "fc00::/7"} {
		_, n, _ := net.ParseCIDR(cidr)
		out = append(out, n)
	}
	return out
}()

func isPrivate(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, n := range privateNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
