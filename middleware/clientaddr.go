package middleware

import (
	"net/http"
	"net/netip"
	"strings"
)

// ClientAddr returns the request's client address. With trustProxy it
// prefers the last X-Forwarded-For entry, then X-Real-IP, and falls back to
// RemoteAddr. The last entry is the one appended by the trusted proxy in
// front of the server; earlier entries are client-controlled. Deployments
// behind more than one proxy hop must have the edge proxy overwrite the
// header. The result is unmapped so IPv4 clients have a single form.
func ClientAddr(r *http.Request, trustProxy bool) (netip.Addr, bool) {
	if trustProxy {
		if xff := lastHeaderValue(r.Header.Values("X-Forwarded-For")); xff != "" {
			if i := strings.LastIndexByte(xff, ','); i >= 0 {
				xff = xff[i+1:]
			}
			if addr, ok := parseAddr(xff); ok {
				return addr, true
			}
		}
		if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return addr, true
		}
	}
	return parseAddr(r.RemoteAddr)
}

func lastHeaderValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

func parseAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(strings.Trim(raw, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
