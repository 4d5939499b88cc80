package pagination

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

var ErrInvalidPage = errors.New("invalid page")

// Paginator implements page-number pagination. Clients pick a page size through
// PageSizeParam, bounded by MaxPageSize.
type Paginator struct {
	PageSize      int
	PageSizeParam string
	MaxPageSize   int
	PageParam     string
}

var Standard = Paginator{
	PageSize:      20,
	PageSizeParam: "page_size",
	MaxPageSize:   100,
	PageParam:     "page",
}

// Page is the envelope returned by list endpoints; field order is part of the
// wire format.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Envelope returns p, or an empty page when no pagination happened.
func (p *Page[T]) Envelope() *Page[T] {
	if p == nil {
		return &Page[T]{Results: []T{}}
	}
	if p.Results == nil {
		p.Results = []T{}
	}
	return p
}

func (p Paginator) Size(q url.Values) int {
	size := p.PageSize
	if p.PageSizeParam == "" {
		return size
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get(p.PageSizeParam))); err == nil && n > 0 {
		size = n
	}
	if p.MaxPageSize > 0 && size > p.MaxPageSize {
		size = p.MaxPageSize
	}
	return size
}

func (p Paginator) pageNumber(q url.Values, pages int) (int, error) {
	raw := strings.TrimSpace(q.Get(p.PageParam))
	switch raw {
	case "":
		return 1, nil
	case "last":
		return pages, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > pages {
		return 0, ErrInvalidPage
	}
	return n, nil
}

// Paginate counts the rows matched by base and loads one page of them. fetch
// scopes (ordering, preloads) apply to the page query only.
func Paginate[T any](r *http.Request, p Paginator, base *gorm.DB, fetch ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	q := r.URL.Query()
	size := p.Size(q)

	var count int64
	if err := base.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, err
	}

	pages := int((count + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	page, err := p.pageNumber(q, pages)
	if err != nil {
		return nil, err
	}

	var results []T
	err = base.Session(&gorm.Session{}).
		Scopes(fetch...).
		Offset((page - 1) * size).
		Limit(size).
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	out := &Page[T]{Count: count, Results: results}
	if page < pages {
		out.Next = p.link(r, page+1)
	}
	if page > 1 {
		out.Previous = p.link(r, page-1)
	}
	return out.Envelope(), nil
}

func (p Paginator) link(r *http.Request, page int) *string {
	u := AbsoluteURL(r)
	q := u.Query()
	if page == 1 {
		q.Del(p.PageParam)
	} else {
		q.Set(p.PageParam, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// AbsoluteURL rebuilds the URL the client requested, honouring a TLS-terminating proxy.
func AbsoluteURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(fp, ",")[0]))
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}
