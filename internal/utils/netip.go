package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// HostOnly strips an optional port from "ip:port", "[v6]:port" or "ip".
func HostOnly(s string) string {
	s = strings.TrimSpace(s)
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientIP resolves the caller address. Proxy headers are only honoured
// when trustProxy is set, in the order CF-Connecting-IP, the left-most
// X-Forwarded-For entry, X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		xff, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		for _, v := range []string{
			r.Header.Get("CF-Connecting-IP"),
			xff,
			r.Header.Get("X-Real-IP"),
		} {
			if ip := HostOnly(v); ip != "" {
				return ip
			}
		}
	}
	return HostOnly(r.RemoteAddr)
}

// PrefixSet matches addresses against single IPs and CIDR prefixes.
type PrefixSet struct {
	prefixes []netip.Prefix
}

// NewPrefixSet parses list, ignoring blank or malformed entries. A bare
// address becomes a single-host prefix.
func NewPrefixSet(list []string) *PrefixSet {
	s := &PrefixSet{}
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if p, err := netip.ParsePrefix(raw); err == nil {
			s.prefixes = append(s.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(raw); err == nil {
			a = a.Unmap()
			s.prefixes = append(s.prefixes, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return s
}

func (s *PrefixSet) Len() int { return len(s.prefixes) }

// Contains reports whether ip falls in any prefix.
func (s *PrefixSet) Contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
