package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrForbiddenAddr marks targets refused by the SSRF rules.
var ErrForbiddenAddr = errors.New("address not allowed")

// NewSafeClient returns an http.Client whose dialer refuses private,
// loopback, link-local and metadata addresses after DNS resolution. Used
// for avatar URLs, which come straight from third-party review data.
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// Pinner resolves host to the single address a request may connect to.
type Pinner func(ctx context.Context, host string) (net.IP, error)

type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// PublicPinner applies the same address rules as NewSafeClient to the
// curl fallback. Every answer must be public; the first one is used.
// r defaults to net.DefaultResolver.
func PublicPinner(r IPResolver) Pinner {
	if r == nil {
		r = net.DefaultResolver
	}
	return func(ctx context.Context, host string) (net.IP, error) {
		if ip := net.ParseIP(host); ip != nil {
			if !publicIP(ip) {
				return nil, fmt.Errorf("%w: %s", ErrForbiddenAddr, ip)
			}
			return ip, nil
		}
		addrs, err := r.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no address for %s", host)
		}
		for _, a := range addrs {
			if !publicIP(a.IP) {
				return nil, fmt.Errorf("%w: %s resolves to %s", ErrForbiddenAddr, host, a.IP)
			}
		}
		return addrs[0].IP, nil
	}
}

var sharedAddrSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

func publicIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(), ip.IsMulticast(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsInterfaceLocalMulticast():
		return false
	case sharedAddrSpace.Contains(ip):
		return false
	}
	return true
}
