package models

// GeoLocation is the normalized location returned to API callers.
// Every field is always present; missing data is the empty string.
type GeoLocation struct {
	Lat     string `json:"lat" example:"37.4"`           // Latitude, decimal string
	Lng     string `json:"lng" example:"-122.1"`         // Longitude, decimal string
	Country string `json:"country" example:"US"`         // ISO country code
	City    string `json:"city" example:"Mountain View"` // City name
}

// RawLocation is a record as it comes out of a datastore, before normalization.
// LL holds latitude then longitude; nil means the store has no coordinates.
type RawLocation struct {
	LL      []float64 `json:"ll,omitempty"`
	Country string    `json:"country,omitempty"`
	City    string    `json:"city,omitempty"`
}

// ErrorPointer points at the request that caused an error
type ErrorPointer struct {
	Pointer string `json:"pointer" example:"/?ip=tytytytytyty"`
}

// ErrorResponse is the envelope written for every failed request
type ErrorResponse struct {
	Status int          `json:"status" example:"400"`
	Title  string       `json:"title" example:"Bad Request"`
	Detail any          `json:"detail" swaggertype:"string" example:"Ошибка формата ip"`
	Source ErrorPointer `json:"source"`
}
