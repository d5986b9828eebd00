package ingestion

import (
	"errors"
	"fmt"
	"math"
)

var (
	errInvalidCoordinates = errors.New("invalid coordinates")
	errIncompleteSoil     = errors.New("incomplete soil profile")
	errNoForecast         = errors.New("no daily forecast")
)

// ValidationError marks a request or upstream payload we refuse to use.
type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ValidationError{reason: fmt.Errorf("latitude %v out of range: %w", lat, errInvalidCoordinates)}
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ValidationError{reason: fmt.Errorf("longitude %v out of range: %w", lon, errInvalidCoordinates)}
	}
	return nil
}
