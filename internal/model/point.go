package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

var validate = validator.New()

// Point is a WGS84 coordinate. Geometry in region datasets is stored in
// (lng, lat) order; Point keeps the field names explicit to avoid swaps.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// String formats the point as "lat,lng".
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Validate rejects non-finite or out-of-range coordinates. The returned error
// matches ErrInvalidInput.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return eris.Wrap(ErrInvalidInput, "lat must be a finite number")
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return eris.Wrap(ErrInvalidInput, "lng must be a finite number")
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return eris.Wrap(ErrInvalidInput, describe(verrs[0]))
		}
		return eris.Wrap(ErrInvalidInput, err.Error())
	}
	return nil
}

// PointInput is the wire shape of a point query. Pointer fields distinguish a
// missing coordinate from a zero one.
type PointInput struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Point converts the input to a validated Point.
func (in PointInput) Point() (Point, error) {
	if in.Lat == nil {
		return Point{}, eris.Wrap(ErrInvalidInput, "lat is required")
	}
	if in.Lng == nil {
		return Point{}, eris.Wrap(ErrInvalidInput, "lng is required")
	}
	p := Point{Lat: *in.Lat, Lng: *in.Lng}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// ParsePoint parses textual coordinates (CLI flags, CSV cells).
func ParsePoint(lat, lng string) (Point, error) {
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	if lat == "" || lng == "" {
		return Point{}, eris.Wrap(ErrInvalidInput, "lat and lng are required")
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Point{}, eris.Wrapf(ErrInvalidInput, "lat %q is not a number", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return Point{}, eris.Wrapf(ErrInvalidInput, "lng %q is not a number", lng)
	}
	p := Point{Lat: la, Lng: ln}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
