package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/evyataryagoni/geoip-service/internal/apperr"
	"github.com/evyataryagoni/geoip-service/internal/ipformat"
	"github.com/evyataryagoni/geoip-service/internal/logger"
	"github.com/evyataryagoni/geoip-service/internal/metrics"
	"github.com/evyataryagoni/geoip-service/internal/models"
	"github.com/evyataryagoni/geoip-service/internal/store"
)

// ErrMalformedRecord is returned when a store hands back a record that
// cannot be normalized
var ErrMalformedRecord = errors.New("malformed location record")

// Stage names used in log entries and metric labels
const (
	stageValidate  = "validate"
	stageLookup    = "lookup"
	stageMissing   = "missing_data"
	stageNormalize = "normalize"
)

// GeoService resolves an IP address to a normalized location
//
// Pipeline:
//  1. validate the IP format
//  2. query the store
//  3. reject missing data
//  4. normalize the raw record
//
// Validation and missing data come back as *apperr.Error (400 / 404).
// Store faults and malformed records come back as ordinary wrapped errors;
// the HTTP layer's translator turns those into a generic 500.
type GeoService struct {
	store     store.Store
	storeName string
	validator *validator.Validate
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewGeoService creates the resolver. m and log may be nil.
func NewGeoService(s store.Store, m *metrics.Metrics, log *logger.Logger) *GeoService {
	if log == nil {
		log = logger.NewDefault()
	}
	return &GeoService{
		store:     s,
		storeName: store.Name(s),
		validator: ipformat.NewValidator(),
		metrics:   m,
		logger:    log.WithComponent("GeoService"),
	}
}

// Resolve returns the location of ip. An empty ip is treated as absent.
func (s *GeoService) Resolve(ip string) (*models.GeoLocation, error) {
	log := s.logger.WithIP(ip)
	log.Info().Str("stage", stageValidate).Msg("Starting geolocation lookup")

	if err := s.validator.Var(ip, "required,"+ipformat.Tag); err != nil {
		log.Warn().Str("stage", stageValidate).Msg("Invalid IP format")
		s.countResult(metrics.ResultInvalid)
		return nil, apperr.Validation()
	}

	log.Info().Str("stage", stageLookup).Str("datastore", s.storeName).Msg("Looking up IP address")
	raw, err := s.lookup(ipformat.Canonical(ip))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("stage", stageLookup).Msg("Datastore error during lookup")
		s.countFailure(stageLookup)
		return nil, fmt.Errorf("lookup %s: %w", ip, err)
	}
	if err != nil {
		raw = nil
	}

	log.Info().Str("stage", stageMissing).Bool("found", raw != nil).Msg("Checking lookup result")
	if raw == nil {
		log.Warn().Str("stage", stageMissing).Msg("No data for this IP")
		s.countResult(metrics.ResultNotFound)
		return nil, apperr.NotFound()
	}

	log.Info().Str("stage", stageNormalize).Msg("Normalizing location")
	location, err := Normalize(raw)
	if err != nil {
		log.Error().Err(err).Str("stage", stageNormalize).Msg("Failed to normalize location")
		s.countFailure(stageNormalize)
		return nil, fmt.Errorf("normalize %s: %w", ip, err)
	}

	log.Info().
		Str("country", location.Country).
		Str("city", location.City).
		Msg("Geolocation lookup successful")
	s.countResult(metrics.ResultSuccess)
	return location, nil
}

// lookup calls the store, turning a panic inside a backend into an error
func (s *GeoService) lookup(ip string) (raw *models.RawLocation, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("datastore panic: %v", r)
		}
		s.observeQuery(start, err)
	}()

	return s.store.FindByIP(ip)
}

// Normalize converts a raw record into the public shape.
// Coordinates must be absent or exactly a finite (lat, lng) pair.
func Normalize(raw *models.RawLocation) (*models.GeoLocation, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}

	location := &models.GeoLocation{
		Country: raw.Country,
		City:    raw.City,
	}

	switch len(raw.LL) {
	case 0:
	case 2:
		lat, lng := raw.LL[0], raw.LL[1]
		if !finite(lat) || !finite(lng) {
			return nil, fmt.Errorf("%w: non-finite coordinates %v", ErrMalformedRecord, raw.LL)
		}
		location.Lat = decimalString(lat)
		location.Lng = decimalString(lng)
	default:
		return nil, fmt.Errorf("%w: expected 2 coordinates, got %d", ErrMalformedRecord, len(raw.LL))
	}

	return location, nil
}

// decimalString formats v with the fewest digits that parse back to v
func decimalString(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *GeoService) countResult(result string) {
	if s.metrics != nil {
		s.metrics.GeoLookupsTotal.WithLabelValues(result).Inc()
	}
}

func (s *GeoService) countFailure(stage string) {
	if s.metrics != nil {
		s.metrics.GeoLookupsTotal.WithLabelValues(metrics.ResultInternal).Inc()
		s.metrics.GeoLookupErrors.WithLabelValues(stage).Inc()
	}
}

func (s *GeoService) observeQuery(start time.Time, err error) {
	if s.metrics == nil {
		return
	}

	status := "ok"
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}

	s.metrics.DatastoreQueriesTotal.WithLabelValues(s.storeName, status).Inc()
	s.metrics.DatastoreQueryDuration.WithLabelValues(s.storeName).Observe(time.Since(start).Seconds())
}

// Close closes the underlying store
func (s *GeoService) Close() error {
	return s.store.Close()
}
