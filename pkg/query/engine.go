package query

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Result is one page of a query
type Result[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Run validates spec and applies filter, sort and paginate to records, in that order.
//
// records must already be scoped to a single tenant. The input slice is not modified.
func Run[T any](schema *Schema[T], records []T, spec Spec) (Result[T], error) {
	if err := schema.Validate(spec); err != nil {
		return Result[T]{}, err
	}

	filtered := Filter(schema, records, spec)
	Sort(schema, filtered, spec.SortBy, spec.SortOrder)
	return Paginate(filtered, spec.Page, spec.Limit), nil
}

// Filter returns the records matching every filter, range and the search term
func Filter[T any](schema *Schema[T], records []T, spec Spec) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if matches(schema, r, spec) {
			out = append(out, r)
		}
	}
	return out
}

func matches[T any](schema *Schema[T], record T, spec Spec) bool {
	for name, want := range spec.Filters {
		if want == "" {
			continue
		}
		f, ok := schema.fields[name]
		if !ok || !matchExact(f, record, want) {
			return false
		}
	}

	for name, r := range spec.Ranges {
		f, ok := schema.fields[name]
		if !ok || f.typ != TypeNumber {
			return false
		}
		v, ok := f.num(record)
		if !ok {
			return false
		}
		if r.Min != nil && v < *r.Min {
			return false
		}
		if r.Max != nil && v > *r.Max {
			return false
		}
	}

	if spec.Search != "" && !schema.matchesSearch(record, spec.Search) {
		return false
	}
	return true
}

func matchExact[T any](f field[T], record T, want string) bool {
	switch f.typ {
	case TypeString:
		v, ok := f.str(record)
		return ok && strings.EqualFold(v, want)
	case TypeNumber:
		v, ok := f.num(record)
		if !ok {
			return false
		}
		n, err := strconv.ParseFloat(want, 64)
		return err == nil && v == n
	case TypeBool:
		v, _ := f.flag(record)
		b, err := strconv.ParseBool(want)
		return err == nil && v == b
	case TypeTime:
		v, ok := f.tm(record)
		if !ok {
			return false
		}
		return strings.EqualFold(v.UTC().Format(time.RFC3339), want)
	}
	return false
}

// Sort orders records in place by a single field. Ties keep their input order and
// records without a value for the field go last in either direction.
func Sort[T any](schema *Schema[T], records []T, sortBy string, order Order) {
	f, ok := schema.resolveSort(sortBy)
	if !ok {
		return
	}
	desc := order == Desc || order == ""

	sort.SliceStable(records, func(i, j int) bool {
		c, present := compare(f, records[i], records[j])
		switch present {
		case bothMissing:
			return false
		case leftMissing:
			return false
		case rightMissing:
			return true
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

type presence int

const (
	bothPresent presence = iota
	leftMissing
	rightMissing
	bothMissing
)

func compare[T any](f field[T], a, b T) (int, presence) {
	switch f.typ {
	case TypeString:
		x, okx := f.str(a)
		y, oky := f.str(b)
		if p := presenceOf(okx, oky); p != bothPresent {
			return 0, p
		}
		return strings.Compare(strings.ToLower(x), strings.ToLower(y)), bothPresent
	case TypeNumber:
		x, okx := f.num(a)
		y, oky := f.num(b)
		if p := presenceOf(okx, oky); p != bothPresent {
			return 0, p
		}
		return cmpFloat(x, y), bothPresent
	case TypeTime:
		x, okx := f.tm(a)
		y, oky := f.tm(b)
		if p := presenceOf(okx, oky); p != bothPresent {
			return 0, p
		}
		return x.Compare(y), bothPresent
	case TypeBool:
		x, _ := f.flag(a)
		y, _ := f.flag(b)
		switch {
		case x == y:
			return 0, bothPresent
		case !x:
			return -1, bothPresent
		default:
			return 1, bothPresent
		}
	}
	return 0, bothMissing
}

func presenceOf(okx, oky bool) presence {
	switch {
	case okx && oky:
		return bothPresent
	case !okx && !oky:
		return bothMissing
	case !okx:
		return leftMissing
	default:
		return rightMissing
	}
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Paginate slices one page out of records.
// A page past the end yields no items but still reports the totals.
func Paginate[T any](records []T, page, limit int) Result[T] {
	total := len(records)
	res := Result[T]{
		Items:      []T{},
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: TotalPages(total, limit),
	}
	if page < 1 || limit < 1 || page > res.TotalPages {
		return res
	}

	start := (page - 1) * limit
	end := total
	if limit < total-start {
		end = start + limit
	}
	res.Items = append(res.Items, records[start:end]...)
	return res
}

// TotalPages returns ceil(total/limit), or 0 when there is nothing to page
func TotalPages(total, limit int) int {
	if total <= 0 || limit < 1 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
