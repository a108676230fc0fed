package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// CountryResolver resolves ISO country codes from IP addresses.
type CountryResolver interface {
	CountryCode(ip string) (string, error)
}

// Resolver provides country lookups backed by a MaxMind GeoIP2 database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the GeoIP database at the given path. When the path is empty, nil is returned.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// CountryCode returns the ISO country code for the provided IP.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil || record.Country.IsoCode == "" {
		return "", nil
	}
	return record.Country.IsoCode, nil
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// domesticCountries are served faster by the mainland deployment.
var domesticCountries = map[string]struct{}{
	"CN": {},
}

// RegionSelector picks the generation API deployment closest to a caller.
type RegionSelector struct {
	countries CountryResolver
	fallback  domain.Region
}

// NewRegionSelector returns a selector that falls back to fallback when the
// caller's country cannot be determined. countries may be nil.
func NewRegionSelector(countries CountryResolver, fallback domain.Region) *RegionSelector {
	if fallback == "" {
		fallback = domain.RegionDomestic
	}
	return &RegionSelector{countries: countries, fallback: fallback}
}

// Fallback returns the configured default region.
func (s *RegionSelector) Fallback() domain.Region {
	if s == nil {
		return domain.RegionDomestic
	}
	return s.fallback
}

// RegionForIP resolves the region for ip.
func (s *RegionSelector) RegionForIP(ip string) domain.Region {
	if s == nil {
		return domain.RegionDomestic
	}
	if s.countries == nil || strings.TrimSpace(ip) == "" {
		return s.fallback
	}
	code, err := s.countries.CountryCode(ip)
	if err != nil {
		return s.fallback
	}
	return s.RegionForCountry(code)
}

// RegionForCountry maps an ISO country code onto a region. An empty code
// yields the fallback.
func (s *RegionSelector) RegionForCountry(code string) domain.Region {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.Fallback()
	}
	if _, ok := domesticCountries[code]; ok {
		return domain.RegionDomestic
	}
	return domain.RegionOverseas
}
