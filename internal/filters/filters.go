package filters

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Scope narrows a query; scopes compose with (*gorm.DB).Scopes.
type Scope = func(*gorm.DB) *gorm.DB

// ValidationError maps a query parameter to the reasons its value was rejected.
type ValidationError map[string][]string

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e[k], " ")))
	}
	return "invalid filter: " + strings.Join(parts, "; ")
}

// Filter turns a raw, non-empty parameter value into a scope.
type Filter func(value string) (Scope, error)

// FilterSet is keyed by the query parameter each filter reads.
type FilterSet map[string]Filter

// Scopes builds the conjunction of every recognised, non-empty parameter in q.
// Unknown parameters are ignored.
func (fs FilterSet) Scopes(q url.Values) ([]Scope, error) {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		scopes []Scope
		verr   = ValidationError{}
	)
	for _, name := range names {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		s, err := fs[name](raw)
		if err != nil {
			verr[name] = append(verr[name], err.Error())
			continue
		}
		scopes = append(scopes, s)
	}
	if len(verr) > 0 {
		return nil, verr
	}
	return scopes, nil
}

// Number filters column with op against an integer value.
func Number(column, op string) Filter {
	return func(value string) (Scope, error) {
		n, err := parseID(value)
		if err != nil {
			return nil, err
		}
		cond := fmt.Sprintf("%s %s ?", column, op)
		return func(db *gorm.DB) *gorm.DB { return db.Where(cond, n) }, nil
	}
}

// IsoDateTime filters column with op against an ISO-8601 timestamp.
func IsoDateTime(column, op string) Filter {
	return func(value string) (Scope, error) {
		ts, err := ParseDateTime(value)
		if err != nil {
			return nil, err
		}
		cond := fmt.Sprintf("%s %s ?", column, op)
		return func(db *gorm.DB) *gorm.DB { return db.Where(cond, ts) }, nil
	}
}

// Method adapts a custom filter method taking the parsed integer.
func Method(fn func(id uint) Scope) Filter {
	return func(value string) (Scope, error) {
		n, err := parseID(value)
		if err != nil {
			return nil, err
		}
		return fn(n), nil
	}
}

func parseID(value string) (uint, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errNumber
	}
	return uint(n), nil
}

type filterError string

func (e filterError) Error() string { return string(e) }

const (
	errNumber   filterError = "Enter a number."
	errDateTime filterError = "Enter a valid date/time."
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime accepts RFC 3339 and the common naive variants; naive values are UTC.
func ParseDateTime(value string) (time.Time, error) {
	// '+' in an offset arrives as a space when the client forgot to escape it
	v := strings.TrimSpace(value)
	if i := strings.LastIndex(v, " "); i > 10 && looksLikeOffset(v[i+1:]) {
		v = v[:i] + "+" + v[i+1:]
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errDateTime
}

func looksLikeOffset(s string) bool {
	return len(s) == 5 && s[2] == ':'
}
