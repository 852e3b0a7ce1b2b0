package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ip2location/ip2location-go/v9"

	"github.com/evyataryagoni/geoip-service/internal/ipformat"
	"github.com/evyataryagoni/geoip-service/internal/models"
)

// IP2LocationStore reads an IP2Location BIN database (DB5 or richer for coordinates).
//
// This site or product includes IP2Location LITE data available from
// https://lite.ip2location.com.
type IP2LocationStore struct {
	db *ip2location.DB
}

// NewIP2LocationStore opens the database at dbPath
func NewIP2LocationStore(dbPath string) (*IP2LocationStore, error) {
	db, err := ip2location.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open IP2Location database: %w", err)
	}
	return &IP2LocationStore{db: db}, nil
}

// FindByIP looks up ip in the BIN database
func (s *IP2LocationStore) FindByIP(ip string) (*models.RawLocation, error) {
	results, err := s.db.Get_all(ipformat.Canonical(ip))
	if err != nil {
		return nil, fmt.Errorf("IP2Location lookup failed: %w", err)
	}
	return fromIP2Location(results)
}

// fromIP2Location converts a lookup record.
// The library reports missing data with "-" placeholders and reports
// fields absent from the database edition with a "not supported" notice.
func fromIP2Location(r ip2location.IP2Locationrecord) (*models.RawLocation, error) {
	country := ip2locationField(r.Country_short)
	city := ip2locationField(r.City)

	if strings.HasPrefix(r.Country_short, "Invalid") {
		return nil, fmt.Errorf("IP2Location rejected address: %s", r.Country_short)
	}

	loc := &models.RawLocation{
		Country: country,
		City:    city,
	}
	if r.Latitude != 0 || r.Longitude != 0 {
		loc.LL = []float64{widen(r.Latitude), widen(r.Longitude)}
	}

	if loc.LL == nil && country == "" && city == "" {
		return nil, ErrNotFound
	}
	return loc, nil
}

func ip2locationField(v string) string {
	if v == "-" || strings.HasPrefix(v, "This parameter is unavailable") {
		return ""
	}
	return v
}

// widen converts a float32 coordinate without picking up binary noise,
// so 37.4 stays 37.4 rather than 37.400001525878906.
func widen(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'f', -1, 32), 64)
	return v
}

// Close releases the database file
func (s *IP2LocationStore) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}
