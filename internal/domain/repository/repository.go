package repository

import (
	"fmt"
	"strings"
	"time"

	"blog_backend/internal/common"
	"blog_backend/internal/platform/database"

	"github.com/google/uuid"
)

// validID reports whether id can name a row. Malformed ids are treated as
// absent rather than passed to Postgres, which would reject them.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Now is the store clock. Postgres keeps microseconds, so values are
// truncated to compare equal after a round trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// classify maps constraint failures onto the common error taxonomy.
func classify(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, common.ErrConflict)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, common.ErrIntegrityViolation)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
