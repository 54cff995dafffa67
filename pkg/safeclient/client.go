// Package safeclient provides an HTTP client that refuses connections to
// private and internal address ranges. The bot uses it to fetch
// user-uploaded cookie files from the Telegram file API.
package safeclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrForbiddenIP is returned when the resolved address falls in a blocked
// range.
var ErrForbiddenIP = errors.New("connection to private/internal IP addresses is forbidden")

var forbiddenV4 = []net.IPNet{
	{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
	{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)},
	{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	// cloud metadata endpoint
	{IP: net.IPv4(169, 254, 169, 254), Mask: net.CIDRMask(32, 32)},
}

var forbiddenV6 = []net.IPNet{
	{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
	{IP: net.ParseIP("::"), Mask: net.CIDRMask(128, 128)},
	{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
	{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
	{IP: net.ParseIP("ff00::"), Mask: net.CIDRMask(8, 128)},
}

// IsForbiddenIP reports whether connections to ip must be refused.
func IsForbiddenIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		for _, network := range forbiddenV4 {
			if network.Contains(v4) {
				return true
			}
		}
		return false
	}
	for _, network := range forbiddenV6 {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// The Control hook validates the address after DNS resolution, which
// covers DNS rebinding.
func safeDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, c syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return fmt.Errorf("failed to parse address: %w", err)
			}
			ip := net.ParseIP(host)
			if ip == nil {
				return fmt.Errorf("invalid IP address: %s", host)
			}
			if IsForbiddenIP(ip) {
				return ErrForbiddenIP
			}
			return nil
		},
	}
}

// New creates an SSRF-protected HTTP client with the given timeout.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext:           safeDialer().DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// Get performs a GET request with SSRF protection.
func Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return New(30 * time.Second).Do(req)
}
