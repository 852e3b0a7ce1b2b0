package store

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/evyataryagoni/geoip-service/internal/models"
)

// MaxMindStore reads a MaxMind GeoIP2/GeoLite2 City database (.mmdb).
// The database is memory mapped once and shared by all readers.
type MaxMindStore struct {
	db *geoip2.Reader
}

// NewMaxMindStore opens the database at dbPath
func NewMaxMindStore(dbPath string) (*MaxMindStore, error) {
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MaxMind database: %w", err)
	}
	return &MaxMindStore{db: db}, nil
}

// FindByIP looks up ip in the City database
func (s *MaxMindStore) FindByIP(ip string) (*models.RawLocation, error) {
	addr, err := parseAddr(ip)
	if err != nil {
		return nil, err
	}

	record, err := s.db.City(net.IP(addr.AsSlice()))
	if err != nil {
		return nil, fmt.Errorf("MaxMind lookup failed: %w", err)
	}
	return fromMaxMind(record)
}

// fromMaxMind converts a City record. The reader returns a zero record
// rather than an error for addresses outside every network.
func fromMaxMind(record *geoip2.City) (*models.RawLocation, error) {
	if record == nil {
		return nil, ErrNotFound
	}

	loc := &models.RawLocation{
		Country: record.Country.IsoCode,
		City:    record.City.Names["en"],
	}

	hasCoords := record.Location.Latitude != 0 || record.Location.Longitude != 0
	if hasCoords {
		loc.LL = []float64{record.Location.Latitude, record.Location.Longitude}
	}

	if !hasCoords && loc.Country == "" && loc.City == "" {
		return nil, ErrNotFound
	}
	return loc, nil
}

// Close unmaps the database
func (s *MaxMindStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
