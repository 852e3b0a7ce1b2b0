package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/evyataryagoni/geoip-service/internal/models"
)

// Record is one row of the geolocation table
type Record struct {
	Network  netip.Prefix
	Location models.RawLocation
}

// CSVStore keeps the whole table in memory, keyed by network
//
// CSV Format: network,lat,lng,country,city
// Example: 66.249.64.0/19,37.4,-122.1,US,Mountain View
//
// network may be a CIDR or a single address. lat/lng may both be empty
// when the source has no coordinates for the range.
type CSVStore struct {
	data map[netip.Prefix]models.RawLocation
}

// NewCSVStore reads the file at filePath into memory
func NewCSVStore(filePath string) (*CSVStore, error) {
	records, err := ReadCSVFile(filePath)
	if err != nil {
		return nil, err
	}
	return NewCSVStoreFromRecords(records), nil
}

// ReadCSVFile opens filePath and parses it with ReadCSV
func ReadCSVFile(filePath string) ([]Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// NewCSVStoreFromRecords builds a store from already parsed records
func NewCSVStoreFromRecords(records []Record) *CSVStore {
	s := &CSVStore{
		data: make(map[netip.Prefix]models.RawLocation, len(records)),
	}
	for _, r := range records {
		s.data[r.Network] = r.Location
	}
	return s
}

// ReadCSV parses a geolocation table. The first row is a header.
// Rows with the wrong number of columns or an unparsable network are skipped;
// unparsable coordinates fail the whole read.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows {
		if i == 0 || len(row) != 5 {
			continue
		}

		network, err := ParseNetwork(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}

		ll, err := parseLL(row[1], row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		records = append(records, Record{
			Network: network,
			Location: models.RawLocation{
				LL:      ll,
				Country: strings.TrimSpace(row[3]),
				City:    strings.TrimSpace(row[4]),
			},
		})
	}

	return records, nil
}

func parseLL(latStr, lngStr string) ([]float64, error) {
	latStr, lngStr = strings.TrimSpace(latStr), strings.TrimSpace(lngStr)
	if latStr == "" && lngStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", lngStr, err)
	}
	return []float64{lat, lng}, nil
}

// FindByIP returns the record of the most specific network containing ip
func (s *CSVStore) FindByIP(ip string) (*models.RawLocation, error) {
	prefixes, err := candidatePrefixes(ip)
	if err != nil {
		return nil, err
	}

	for _, p := range prefixes {
		if loc, ok := s.data[p]; ok {
			return &loc, nil
		}
	}
	return nil, ErrNotFound
}

// Records returns the table contents, used to seed other stores
func (s *CSVStore) Records() []Record {
	records := make([]Record, 0, len(s.data))
	for network, loc := range s.data {
		records = append(records, Record{Network: network, Location: loc})
	}
	return records
}

// Close is a no-op, everything lives in memory
func (s *CSVStore) Close() error {
	return nil
}
