package repository

import (
	"strings"

	"blog_backend/internal/platform/database"
)

// PostSortField names a column posts can be ordered by.
type PostSortField string

const (
	SortByID        PostSortField = "id"
	SortByTitle     PostSortField = "title"
	SortByContent   PostSortField = "content"
	SortByCreated   PostSortField = "created"
	SortByPublished PostSortField = "published"
	SortByAuthor    PostSortField = "author"
	SortByCategory  PostSortField = "category"
)

var postSortColumns = map[PostSortField]string{
	SortByID:        "p.id",
	SortByTitle:     "p.title",
	SortByContent:   "p.content",
	SortByCreated:   "p.created_at",
	SortByPublished: "p.published_at",
	SortByAuthor:    "u.username",
	SortByCategory:  "c.name",
}

type PostSort struct {
	Field PostSortField
	Desc  bool
}

// PostQuery describes a read over posts. The zero value selects every post
// in creation order.
type PostQuery struct {
	PublishedOnly bool

	// Search matches, case-insensitively, a substring of the title, the
	// content, any tag name or the author's username.
	Search string

	// Category and Author match exactly. When both are set a post matching
	// either one is selected.
	Category string
	Author   string

	Sort []PostSort

	// Limit <= 0 returns every matching row.
	Limit  int
	Offset int
}

const postFrom = ` FROM posts p
	JOIN users u ON u.id = p.author_id
	JOIN categories c ON c.id = p.category_id`

// where renders the filter part of q. Search terms and columns are both
// lowered with d's Unicode-aware function.
func (q PostQuery) where(d database.Dialect) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if q.PublishedOnly {
		conditions = append(conditions, "p.published_at IS NOT NULL")
	}

	if q.Search != "" {
		pattern := containsPattern(q.Search)
		conditions = append(conditions, `(`+d.Lower("p.title")+` LIKE ? ESCAPE '\'
		OR `+d.Lower("p.content")+` LIKE ? ESCAPE '\'
		OR `+d.Lower("u.username")+` LIKE ? ESCAPE '\'
		OR EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		           WHERE pt.post_id = p.id AND `+d.Lower("t.name")+` LIKE ? ESCAPE '\'))`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var either []string
	if q.Category != "" {
		either = append(either, "c.name = ?")
		args = append(args, q.Category)
	}
	if q.Author != "" {
		either = append(either, "u.username = ?")
		args = append(args, q.Author)
	}
	if len(either) > 0 {
		conditions = append(conditions, "("+strings.Join(either, " OR ")+")")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderBy always ends with p.id so pages are stable.
func (q PostQuery) orderBy() string {
	sorts := q.Sort
	if len(sorts) == 0 {
		sorts = []PostSort{{Field: SortByCreated}}
	}

	terms := make([]string, 0, len(sorts)+1)
	hasID := false
	for _, s := range sorts {
		col, ok := postSortColumns[s.Field]
		if !ok {
			continue
		}
		if s.Field == SortByID {
			hasID = true
		}
		if s.Desc {
			col += " DESC"
		}
		terms = append(terms, col)
	}
	if !hasID {
		terms = append(terms, "p.id")
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

// selectSQL builds the page query and the matching count query.
func (q PostQuery) selectSQL(d database.Dialect) (query, count string, args, countArgs []interface{}) {
	where, whereArgs := q.where(d)

	var b strings.Builder
	b.WriteString(`SELECT p.id, p.title, p.slug, p.content, p.author_id, p.category_id,
	p.created_at, p.published_at, u.username, c.name`)
	b.WriteString(postFrom)
	b.WriteString(where)
	b.WriteString(q.orderBy())

	args = append(args, whereArgs...)
	if q.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, q.Limit, offset)
	}

	return b.String(), "SELECT COUNT(*)" + postFrom + where, args, whereArgs
}
