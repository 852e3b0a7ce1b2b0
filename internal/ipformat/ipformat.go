// Package ipformat checks whether a string looks like an IP address the
// lookup tables can be queried with.
//
// Only dotted-quad IPv4 and the full eight-group IPv6 form are accepted.
// Zero-compressed IPv6 ("2001:db8::1") is rejected: this is a known
// limitation of the service, callers must expand the address first.
package ipformat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Tag is the validator tag registered by Register
const Tag = "geoip"

var pattern = regexp.MustCompile(
	`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$` +
		`|^(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`,
)

// Valid reports whether ip is a strict IPv4 or full-form IPv6 literal.
// The empty string (an absent query parameter) is never valid.
func Valid(ip string) bool {
	if ip == "" {
		return false
	}
	return pattern.MatchString(ip)
}

// Canonical strips leading zeros from each octet of a dotted-quad IPv4
// address ("010.001.1.1" becomes "10.1.1.1"), the form address parsers
// accept. Anything else, IPv6 included, is returned unchanged.
func Canonical(ip string) string {
	if strings.Contains(ip, ":") {
		return ip
	}

	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return ip
	}
	for i, octet := range octets {
		n, err := strconv.Atoi(octet)
		if err != nil || n < 0 || n > 255 {
			return ip
		}
		octets[i] = strconv.Itoa(n)
	}
	return strings.Join(octets, ".")
}

// Register installs Valid on v under the "geoip" tag so it can be used as
// v.Var(ip, "required,geoip").
func Register(v *validator.Validate) error {
	return v.RegisterValidation(Tag, func(fl validator.FieldLevel) bool {
		return Valid(fl.Field().String())
	})
}

// NewValidator returns a validator with the "geoip" tag installed
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}
