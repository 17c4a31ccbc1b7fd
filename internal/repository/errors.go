package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate signals a unique-constraint violation. Duplicate enrollments
// and reviews are guarded at the database so concurrent check-then-insert
// races cannot slip through; services translate this into a conflict error.
var ErrDuplicate = errors.New("duplicate record")

func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicate
	}
	return err
}
