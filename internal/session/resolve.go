package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// publicDNS is raced when the system resolver cannot resolve the server.
var publicDNS = []string{
	"1.1.1.1",                // Cloudflare
	"1.0.0.1",                // Cloudflare
	"[2606:4700:4700::1111]", // Cloudflare
	"8.8.8.8",                // Google
	"8.8.4.4",                // Google
	"[2001:4860:4860::8888]", // Google
	"9.9.9.9",                // Quad9
	"149.112.112.112",        // Quad9
}

// Lookup resolves host to one IP address, preferring IPv4. The system
// resolver goes first, then public resolvers are raced.
func Lookup(ctx context.Context, host string) (string, error) {
	localCtx, cancel := context.WithTimeout(ctx, time.Second)
	ip, err := lookupWith(localCtx, &net.Resolver{}, host)
	cancel()
	if err == nil {
		return ip, nil
	}

	return raceLookup(ctx, host, publicDNS)
}

func raceLookup(ctx context.Context, host string, servers []string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	results := make(chan result, len(servers))
	for _, server := range servers {
		go func() {
			ip, err := lookupWith(ctx, resolverFor(server), host)
			results <- result{ip: ip, err: err}
		}()
	}

	for range servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("resolving %s: %w", host, ctx.Err())
		}
	}

	return "", fmt.Errorf("resolving %s: all %d public resolvers failed", host, len(servers))
}

func resolverFor(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
}

func lookupWith(ctx context.Context, r *net.Resolver, host string) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}

	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
