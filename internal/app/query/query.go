// Package query turns list, search and filter request parameters into post
// queries and renders limit/offset pages.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"blog_backend/internal/common"
	"blog_backend/internal/domain/repository"
)

// Request parameter names.
const (
	ParamSearch   = "q"
	ParamCategory = "Category"
	ParamAuthor   = "Author"
	ParamSort     = "sort"
	ParamLimit    = "limit"
	ParamOffset   = "offset"
)

var sortFields = map[string]repository.PostSortField{
	"id":             repository.SortByID,
	"title":          repository.SortByTitle,
	"content":        repository.SortByContent,
	"created_date":   repository.SortByCreated,
	"published_date": repository.SortByPublished,
	"author":         repository.SortByAuthor,
	"category":       repository.SortByCategory,
}

// Search selects every post, drafts included, containing the q parameter
// as given. Surrounding spaces are part of the substring.
func Search(v url.Values) repository.PostQuery {
	return repository.PostQuery{Search: v.Get(ParamSearch)}
}

// Filter selects posts in the named category or by the named author.
func Filter(v url.Values) repository.PostQuery {
	return repository.PostQuery{
		Category: strings.TrimSpace(v.Get(ParamCategory)),
		Author:   strings.TrimSpace(v.Get(ParamAuthor)),
	}
}

// Pager holds the paging limits for listings.
type Pager struct {
	DefaultLimit int
	MaxLimit     int
}

// List parses a published-only listing request. Bad limit and offset values
// fall back to their defaults; an unknown sort field is a validation error.
func (p Pager) List(v url.Values) (repository.PostQuery, error) {
	sorts, err := ParseSort(v.Get(ParamSort))
	if err != nil {
		return repository.PostQuery{}, err
	}
	return repository.PostQuery{
		PublishedOnly: true,
		Sort:          sorts,
		Limit:         p.limit(v.Get(ParamLimit)),
		Offset:        offset(v.Get(ParamOffset)),
	}, nil
}

func (p Pager) limit(raw string) int {
	def := p.DefaultLimit
	if def <= 0 {
		def = 10
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if p.MaxLimit > 0 && n > p.MaxLimit {
		return p.MaxLimit
	}
	return n
}

func offset(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseSort reads a comma separated list of field names, each optionally
// prefixed with '-' for descending order. Names are case-insensitive.
func ParseSort(raw string) ([]repository.PostSort, error) {
	var sorts []repository.PostSort
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		desc := strings.HasPrefix(name, "-")
		name = strings.TrimPrefix(name, "-")

		field, ok := sortFields[strings.ToLower(name)]
		if !ok {
			return nil, common.NewValidationError(ParamSort, "Invalid sort field \""+name+"\".")
		}
		sorts = append(sorts, repository.PostSort{Field: field, Desc: desc})
	}
	return sorts, nil
}
