package storage

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateArticle marks an insert that collided with an existing
// link or fingerprint. The article repository classifies it as "not new"
// before callers ever see it; it is exported for tests and logging.
var ErrDuplicateArticle = errors.New("article already exists")

// pqUniqueViolation is the PostgreSQL error code for unique-constraint
// violations.
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
