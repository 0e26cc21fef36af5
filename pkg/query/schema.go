package query

import (
	"sort"
	"strings"
	"time"
)

// FieldType is the value type of a schema field
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeTime
	TypeBool
)

// Capability controls what a query may do with a field
type Capability uint8

const (
	// Filterable fields accept exact-match filters
	Filterable Capability = 1 << iota
	// Sortable fields may be used as sortBy
	Sortable
	// Rangeable numeric fields accept min/max bounds
	Rangeable
)

// DefaultSortField is the field used when sortBy is empty or unknown
const DefaultSortField = "createdAt"

type field[T any] struct {
	name string
	typ  FieldType
	caps Capability

	str  func(T) (string, bool)
	num  func(T) (float64, bool)
	tm   func(T) (time.Time, bool)
	flag func(T) (bool, bool)
}

func (f field[T]) has(c Capability) bool {
	return f.caps&c != 0
}

// Schema describes how the engine reads fields from records of type T.
// A Schema is built once at startup and is safe for concurrent use afterwards.
type Schema[T any] struct {
	kind        string
	fields      map[string]field[T]
	search      []string
	defaultSort string
}

// NewSchema creates an empty schema for a resource kind
func NewSchema[T any](kind string) *Schema[T] {
	return &Schema[T]{
		kind:        kind,
		fields:      make(map[string]field[T]),
		defaultSort: DefaultSortField,
	}
}

// String registers a string field. An empty value counts as absent.
func (s *Schema[T]) String(name string, get func(T) string, caps Capability) *Schema[T] {
	s.fields[name] = field[T]{
		name: name,
		typ:  TypeString,
		caps: caps,
		str: func(r T) (string, bool) {
			v := get(r)
			return v, v != ""
		},
	}
	return s
}

// Number registers a numeric field. get reports false when the record has no value.
func (s *Schema[T]) Number(name string, get func(T) (float64, bool), caps Capability) *Schema[T] {
	s.fields[name] = field[T]{name: name, typ: TypeNumber, caps: caps, num: get}
	return s
}

// Time registers a timestamp field. A zero time counts as absent.
func (s *Schema[T]) Time(name string, get func(T) time.Time, caps Capability) *Schema[T] {
	s.fields[name] = field[T]{
		name: name,
		typ:  TypeTime,
		caps: caps,
		tm: func(r T) (time.Time, bool) {
			v := get(r)
			return v, !v.IsZero()
		},
	}
	return s
}

// Bool registers a boolean field
func (s *Schema[T]) Bool(name string, get func(T) bool, caps Capability) *Schema[T] {
	s.fields[name] = field[T]{
		name: name,
		typ:  TypeBool,
		caps: caps,
		flag: func(r T) (bool, bool) { return get(r), true },
	}
	return s
}

// Search sets the string fields matched by the free-text search term
func (s *Schema[T]) Search(names ...string) *Schema[T] {
	s.search = append([]string(nil), names...)
	return s
}

// Kind returns the resource kind the schema describes
func (s *Schema[T]) Kind() string {
	return s.kind
}

// Has reports whether the schema defines field name
func (s *Schema[T]) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// FilterFields returns the names of filterable fields, sorted
func (s *Schema[T]) FilterFields() []string {
	return s.namesWith(Filterable)
}

// RangeFields returns the names of rangeable fields, sorted
func (s *Schema[T]) RangeFields() []string {
	return s.namesWith(Rangeable)
}

func (s *Schema[T]) namesWith(c Capability) []string {
	names := make([]string, 0, len(s.fields))
	for name, f := range s.fields {
		if f.has(c) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// resolveSort returns the field to sort by, falling back to the default sort field
func (s *Schema[T]) resolveSort(name string) (field[T], bool) {
	if f, ok := s.fields[name]; ok && f.has(Sortable) {
		return f, true
	}
	f, ok := s.fields[s.defaultSort]
	return f, ok
}

// Value returns the string form of a field for grouping, and whether it is present
func (s *Schema[T]) Value(record T, name string) (string, bool) {
	f, ok := s.fields[name]
	if !ok {
		return "", false
	}
	switch f.typ {
	case TypeString:
		return f.str(record)
	case TypeNumber:
		n, ok := f.num(record)
		if !ok {
			return "", false
		}
		return formatNumber(n), true
	case TypeTime:
		t, ok := f.tm(record)
		if !ok {
			return "", false
		}
		return t.UTC().Format(time.RFC3339), true
	case TypeBool:
		b, _ := f.flag(record)
		if b {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

func (s *Schema[T]) matchesSearch(record T, term string) bool {
	needle := strings.ToLower(term)
	for _, name := range s.search {
		f, ok := s.fields[name]
		if !ok || f.typ != TypeString {
			continue
		}
		if v, ok := f.str(record); ok && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
