package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
)

type clientAddrKey struct{}

// ClientAddr records the caller's address for rate limiting. It has to run
// before chi's RealIP, which rewrites RemoteAddr from request headers that
// any client can set. Forwarding headers are only read when the connection
// comes from one of trustedProxies (IPs or CIDR ranges).
func ClientAddr(trustedProxies []string) func(http.Handler) http.Handler {
	var nets []*net.IPNet
	for _, p := range trustedProxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			if ip := net.ParseIP(p); ip != nil && ip.To4() != nil {
				p += "/32"
			} else {
				p += "/128"
			}
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			log.Printf("WARN: Ignoring invalid trusted proxy %q: %v", p, err)
			continue
		}
		nets = append(nets, n)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := hostOnly(r.RemoteAddr)
			if trusted(nets, addr) {
				if fwd := forwardedAddr(r); fwd != "" {
					addr = fwd
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientAddrKey{}, addr)))
		})
	}
}

// ClientAddrFromRequest returns the address stored by ClientAddr, or the
// host part of RemoteAddr when the middleware did not run.
func ClientAddrFromRequest(r *http.Request) string {
	if addr, ok := r.Context().Value(clientAddrKey{}).(string); ok {
		return addr
	}
	return hostOnly(r.RemoteAddr)
}

func trusted(nets []*net.IPNet, addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// forwardedAddr is what the proxy in front of us reported: X-Real-IP, or the
// last hop it appended to X-Forwarded-For.
func forwardedAddr(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if ip := strings.TrimSpace(hops[len(hops)-1]); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ""
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
