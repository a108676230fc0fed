package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

type regionContextKey struct{}
type countryContextKey struct{}

var (
	RegionKey  = regionContextKey{}
	CountryKey = countryContextKey{}
)

// RegionLookup maps callers onto a generation API deployment.
type RegionLookup interface {
	RegionForIP(ip string) domain.Region
	RegionForCountry(code string) domain.Region
	Fallback() domain.Region
}

// Region stores the caller's preferred generation region in the request
// context. An explicit X-Region header wins, then CDN country hints, then a
// GeoIP lookup of the client address.
func Region(lookup RegionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			region, country := resolveRegion(r, lookup)
			ctx := context.WithValue(r.Context(), RegionKey, region)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveRegion(r *http.Request, lookup RegionLookup) (domain.Region, string) {
	if parsed, ok := domain.ParseRegion(r.Header.Get("X-Region")); ok {
		return parsed, ""
	}
	country := countryHint(r)
	if lookup == nil {
		return domain.RegionDomestic, country
	}
	if country != "" {
		return lookup.RegionForCountry(country), country
	}
	if ip := ClientIP(r); ip != "" {
		return lookup.RegionForIP(ip), ""
	}
	return lookup.Fallback(), ""
}

func countryHint(r *http.Request) string {
	for _, key := range []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"} {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" && !strings.EqualFold(val, "XX") {
			return strings.ToUpper(val)
		}
	}
	return ""
}

// ClientIP returns the first valid address in X-Forwarded-For, falling back
// to the connection's remote host.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RegionFromContext returns the region chosen for the request, or "" when the
// middleware did not run.
func RegionFromContext(ctx context.Context) domain.Region {
	if v, ok := ctx.Value(RegionKey).(domain.Region); ok {
		return v
	}
	return ""
}

// CountryFromContext returns the ISO country hint stored in the request context.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}
