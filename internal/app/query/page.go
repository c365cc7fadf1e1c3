package query

import (
	"net/http"
	"net/url"
	"strconv"
)

// Page is the envelope for paginated listings.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope for results found at offset with the given
// limit, out of total matches. Links are derived from base.
func NewPage[T any](base *url.URL, total, limit, offset int, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: total, Results: results}

	if offset+limit < total {
		next := withParams(base, limit, offset+limit)
		page.Next = &next
	}
	if offset > 0 {
		var prev string
		if offset-limit <= 0 {
			prev = withParams(base, limit, 0)
		} else {
			prev = withParams(base, limit, offset-limit)
		}
		page.Previous = &prev
	}
	return page
}

// withParams replaces limit and offset on base. An offset of zero is
// dropped rather than written out.
func withParams(base *url.URL, limit, offset int) string {
	u := *base
	q := u.Query()
	q.Set(ParamLimit, strconv.Itoa(limit))
	if offset > 0 {
		q.Set(ParamOffset, strconv.Itoa(offset))
	} else {
		q.Del(ParamOffset)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RequestURL reconstructs the absolute URL the client used.
func RequestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}
