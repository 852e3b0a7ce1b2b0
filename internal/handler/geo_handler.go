package handler

import (
	"encoding/json"
	"net/http"

	"github.com/evyataryagoni/geoip-service/internal/apperr"
	"github.com/evyataryagoni/geoip-service/internal/models"
)

// Resolver is what the handler needs from the service layer
type Resolver interface {
	Resolve(ip string) (*models.GeoLocation, error)
}

// GeoHandler serves geolocation lookups over HTTP.
// It only parses the request and writes the response; every failure goes
// through the translator so the error envelope is built in one place.
type GeoHandler struct {
	resolver   Resolver
	translator *apperr.Translator
}

// NewGeoHandler creates a handler backed by resolver
func NewGeoHandler(resolver Resolver, translator *apperr.Translator) *GeoHandler {
	if translator == nil {
		translator = apperr.NewTranslator(nil)
	}
	return &GeoHandler{
		resolver:   resolver,
		translator: translator,
	}
}

// GetGeolocation handles GET /?ip=<ip>
// @Summary      Geolocate an IP address
// @Description  Returns latitude, longitude, country and city for an IPv4 or full-form IPv6 address
// @Tags         Geolocation
// @Produce      json
// @Param        ip   query      string  true  "IPv4 or full-form IPv6 address"  example(66.249.68.102)
// @Success      200  {object}   models.GeoLocation
// @Failure      400  {object}   models.ErrorResponse  "Invalid IP format"
// @Failure      404  {object}   models.ErrorResponse  "No data for this IP"
// @Failure      429  {object}   models.ErrorResponse  "Rate limit exceeded"
// @Failure      500  {object}   models.ErrorResponse  "Internal server error"
// @Router       / [get]
func (h *GeoHandler) GetGeolocation(w http.ResponseWriter, r *http.Request) {
	// A missing parameter arrives as "" and is rejected by the resolver
	ip := r.URL.Query().Get("ip")

	location, err := h.resolver.Resolve(ip)
	if err != nil {
		h.translator.Render(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusOK, location)
}

func (h *GeoHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		h.translator.Render(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
