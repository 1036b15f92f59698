package types

import "github.com/google/uuid"

// Actor identifies the user performing an operation. The hosting application
// owns accounts; the workflow core only needs a stable ID plus the fields
// notifications address people by.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
}

func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}
