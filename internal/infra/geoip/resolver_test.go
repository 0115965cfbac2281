package geoip

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewResolverWithoutPath(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("expected nil resolver, got %v %v", r, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close on nil resolver: %v", err)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb")); err == nil {
		t.Fatalf("expected an error for a missing database")
	}
}

func TestCountryCodeWithoutDatabase(t *testing.T) {
	var r *Resolver
	cases := []struct {
		ip      string
		want    string
		wantErr error
	}{
		{ip: "127.0.0.1"},
		{ip: "10.1.2.3"},
		{ip: "192.168.0.10"},
		{ip: "::1"},
		{ip: "203.0.113.9", wantErr: ErrUnavailable},
	}
	for _, tc := range cases {
		got, err := r.CountryCode(tc.ip)
		if !errors.Is(err, tc.wantErr) || got != tc.want {
			t.Errorf("CountryCode(%q) = %q, %v; want %q, %v", tc.ip, got, err, tc.want, tc.wantErr)
		}
	}
	if _, err := r.CountryCode("not-an-ip"); err == nil {
		t.Fatalf("expected an error for an invalid ip")
	}
}
