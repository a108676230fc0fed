package geoip

import (
	"errors"
	"testing"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

type stubCountries map[string]string

func (s stubCountries) CountryCode(ip string) (string, error) {
	code, ok := s[ip]
	if !ok {
		return "", errors.New("not found")
	}
	return code, nil
}

func TestRegionForIP(t *testing.T) {
	selector := NewRegionSelector(stubCountries{
		"1.2.3.4": "CN",
		"5.6.7.8": "US",
		"9.9.9.9": "",
	}, domain.RegionOverseas)

	cases := map[string]domain.Region{
		"1.2.3.4":  domain.RegionDomestic,
		"5.6.7.8":  domain.RegionOverseas,
		"9.9.9.9":  domain.RegionOverseas,
		"10.0.0.1": domain.RegionOverseas,
		"":         domain.RegionOverseas,
	}
	for ip, want := range cases {
		if got := selector.RegionForIP(ip); got != want {
			t.Fatalf("RegionForIP(%q) = %q, want %q", ip, got, want)
		}
	}
}

func TestRegionSelectorWithoutDatabase(t *testing.T) {
	selector := NewRegionSelector(nil, "")
	if got := selector.RegionForIP("5.6.7.8"); got != domain.RegionDomestic {
		t.Fatalf("RegionForIP = %q, want domestic fallback", got)
	}
}

func TestNilResolverIsUnavailable(t *testing.T) {
	var r *Resolver
	if _, err := r.CountryCode("1.2.3.4"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CountryCode error = %v, want ErrUnavailable", err)
	}
}

func TestRegionForCountry(t *testing.T) {
	selector := NewRegionSelector(nil, domain.RegionOverseas)
	cases := map[string]domain.Region{
		"cn":  domain.RegionDomestic,
		" CN": domain.RegionDomestic,
		"JP":  domain.RegionOverseas,
		"":    domain.RegionOverseas,
	}
	for code, want := range cases {
		if got := selector.RegionForCountry(code); got != want {
			t.Fatalf("RegionForCountry(%q) = %q, want %q", code, got, want)
		}
	}
}
