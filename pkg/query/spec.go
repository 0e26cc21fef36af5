package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
)

// Order is a sort direction
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Range is an inclusive numeric bound; nil ends are open
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Spec is the validated set of filter, sort and pagination parameters for one read
type Spec struct {
	// Filters maps filterable schema fields to exact-match values. ParseSpec only
	// reads the schema's fields from a request; a spec built in code that names any
	// other field fails Validate with a validation error rather than being ignored.
	Filters   map[string]string `json:"filters,omitempty"`
	Search    string            `json:"search,omitempty"`
	Ranges    map[string]Range  `json:"ranges,omitempty"`
	SortBy    string            `json:"sortBy"`
	SortOrder Order             `json:"sortOrder"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
}

// DefaultSpec returns a spec for the first page with default sorting
func DefaultSpec() Spec {
	return Spec{
		SortBy:    DefaultSortField,
		SortOrder: Desc,
		Page:      DefaultPage,
		Limit:     DefaultLimit,
	}
}

// Validate checks a spec against a schema. It runs before the pipeline and
// never clamps: bad bounds are rejected.
func (s *Schema[T]) Validate(spec Spec) error {
	if spec.Page < 1 {
		return apperrors.Validation("page must be at least 1")
	}
	if spec.Limit < 1 {
		return apperrors.Validation("limit must be at least 1")
	}
	if spec.Limit > MaxLimit {
		return apperrors.Validation("limit must be at most %d", MaxLimit)
	}
	switch spec.SortOrder {
	case "", Asc, Desc:
	default:
		return apperrors.Validation("sortOrder must be %q or %q", Asc, Desc)
	}

	for name, value := range spec.Filters {
		f, ok := s.fields[name]
		if !ok || !f.has(Filterable) {
			return apperrors.Validation("unknown filter field %q", name)
		}
		switch f.typ {
		case TypeNumber:
			if n, err := strconv.ParseFloat(value, 64); err != nil || !finite(n) {
				return apperrors.Validation("filter %q must be numeric", name)
			}
		case TypeBool:
			if _, err := strconv.ParseBool(value); err != nil {
				return apperrors.Validation("filter %q must be true or false", name)
			}
		}
	}

	for name, r := range spec.Ranges {
		f, ok := s.fields[name]
		if !ok || !f.has(Rangeable) || f.typ != TypeNumber {
			return apperrors.Validation("unknown range field %q", name)
		}
		if (r.Min != nil && !finite(*r.Min)) || (r.Max != nil && !finite(*r.Max)) {
			return apperrors.Validation("range %q bounds must be finite numbers", name)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return apperrors.Validation("min%s must not exceed max%s", capitalize(name), capitalize(name))
		}
	}
	return nil
}

// ParseSpec builds a spec from HTTP query parameters.
//
// Recognized parameters are page, limit, sortBy, sortOrder, search, every
// filterable field of the schema, and min<Field>/max<Field> for rangeable
// fields. Other parameters are ignored.
func ParseSpec[T any](values url.Values, schema *Schema[T]) (Spec, error) {
	spec := DefaultSpec()

	var err error
	if spec.Page, err = intParam(values, "page", DefaultPage); err != nil {
		return Spec{}, err
	}
	if spec.Limit, err = intParam(values, "limit", DefaultLimit); err != nil {
		return Spec{}, err
	}
	if v := strings.TrimSpace(values.Get("sortBy")); v != "" {
		spec.SortBy = v
	}
	if v := strings.TrimSpace(values.Get("sortOrder")); v != "" {
		spec.SortOrder = Order(strings.ToLower(v))
	}
	spec.Search = strings.TrimSpace(values.Get("search"))

	for _, name := range schema.FilterFields() {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			if spec.Filters == nil {
				spec.Filters = make(map[string]string)
			}
			spec.Filters[name] = v
		}
	}

	for _, name := range schema.RangeFields() {
		var r Range
		if r.Min, err = floatParam(values, "min"+capitalize(name)); err != nil {
			return Spec{}, err
		}
		if r.Max, err = floatParam(values, "max"+capitalize(name)); err != nil {
			return Spec{}, err
		}
		if r.Min != nil || r.Max != nil {
			if spec.Ranges == nil {
				spec.Ranges = make(map[string]Range)
			}
			spec.Ranges[name] = r
		}
	}

	if err := schema.Validate(spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func intParam(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("%s must be an integer", name)
	}
	return n, nil
}

func floatParam(values url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(f) {
		return nil, apperrors.Validation("%s must be numeric", name)
	}
	return &f, nil
}

// finite rejects NaN and the infinities, which compare false against every bound
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
