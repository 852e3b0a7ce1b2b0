package store

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/evyataryagoni/geoip-service/internal/ipformat"
	"github.com/evyataryagoni/geoip-service/internal/models"
)

// ErrNotFound is returned by FindByIP when the store has no record for an address
var ErrNotFound = errors.New("no location record for IP address")

// Store is the seam between the resolver and a geolocation data source.
// Implementations are read-only after construction and safe for concurrent use.
type Store interface {
	// FindByIP returns the raw record for ip, or ErrNotFound.
	// Any other error is an unexpected fault of the data source.
	FindByIP(ip string) (*models.RawLocation, error)

	// Close releases file handles and connections
	Close() error
}

// ParseNetwork parses a CIDR ("8.8.8.0/24") or a single address ("8.8.8.8")
// into its canonical masked prefix. Single addresses become /32 or /128.
func ParseNetwork(s string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network %q: %w", s, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// candidatePrefixes lists every prefix containing ip, most specific first.
// Stores walk this list to implement longest-prefix match.
func candidatePrefixes(ip string) ([]netip.Prefix, error) {
	addr, err := parseAddr(ip)
	if err != nil {
		return nil, err
	}

	bits := addr.BitLen()
	prefixes := make([]netip.Prefix, 0, bits+1)
	for length := bits; length >= 0; length-- {
		p, err := addr.Prefix(length)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

// parseAddr parses ip, accepting zero-padded IPv4 octets
func parseAddr(ip string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(ipformat.Canonical(ip))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse address %q: %w", ip, err)
	}
	return addr.Unmap(), nil
}

// Name returns a short label for s, used in logs and metrics
func Name(s Store) string {
	switch s.(type) {
	case *CSVStore:
		return "csv"
	case *MySQLStore:
		return "mysql"
	case *RedisStore:
		return "redis"
	case *MaxMindStore:
		return "maxmind"
	case *IP2LocationStore:
		return "ip2location"
	case *MockStore:
		return "mock"
	default:
		return "unknown"
	}
}
