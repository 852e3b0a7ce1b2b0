package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/evyataryagoni/geoip-service/internal/models"
)

// GeoLocationModel is the GORM model for the geo_locations table.
// Lat and Lng are nullable: a range may have no coordinates.
type GeoLocationModel struct {
	Network   string   `gorm:"column:network;primaryKey;size:43"`
	PrefixLen int      `gorm:"column:prefix_len;index"`
	Lat       *float64 `gorm:"column:lat"`
	Lng       *float64 `gorm:"column:lng"`
	Country   string   `gorm:"column:country;size:2"`
	City      string   `gorm:"column:city"`
}

// TableName overrides GORM's pluralized default
func (GeoLocationModel) TableName() string {
	return "geo_locations"
}

func (m GeoLocationModel) toRaw() *models.RawLocation {
	loc := &models.RawLocation{
		Country: m.Country,
		City:    m.City,
	}
	if m.Lat != nil && m.Lng != nil {
		loc.LL = []float64{*m.Lat, *m.Lng}
	}
	return loc
}

func modelFromRecord(r Record) GeoLocationModel {
	network := r.Network.Masked()
	m := GeoLocationModel{
		Network:   network.String(),
		PrefixLen: network.Bits(),
		Country:   r.Location.Country,
		City:      r.Location.City,
	}
	if len(r.Location.LL) == 2 {
		lat, lng := r.Location.LL[0], r.Location.LL[1]
		m.Lat, m.Lng = &lat, &lng
	}
	return m
}

// MySQLStore looks up networks in MySQL through GORM
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore opens a pooled connection
//
// DSN format: user:password@tcp(host:port)/dbname?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// FindByIP selects the most specific network containing ip
//
// SELECT * FROM geo_locations WHERE network IN (...) ORDER BY prefix_len DESC LIMIT 1
func (s *MySQLStore) FindByIP(ip string) (*models.RawLocation, error) {
	prefixes, err := candidatePrefixes(ip)
	if err != nil {
		return nil, err
	}

	networks := make([]string, len(prefixes))
	for i, p := range prefixes {
		networks[i] = p.String()
	}

	var record GeoLocationModel
	result := s.db.
		Where("network IN ?", networks).
		Order("prefix_len DESC").
		Take(&record)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database query failed: %w", result.Error)
	}

	return record.toRaw(), nil
}

// Migrate creates or updates the geo_locations table
func (s *MySQLStore) Migrate() error {
	return s.db.AutoMigrate(&GeoLocationModel{})
}

// Load upserts records in batches and returns how many were written
func (s *MySQLStore) Load(records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]GeoLocationModel, len(records))
	for i, r := range records {
		rows[i] = modelFromRecord(r)
	}

	result := s.db.
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, 500)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to load records into MySQL: %w", result.Error)
	}
	return len(rows), nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
