package persistence

import (
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
)

const openRequestUniqueConstraint = "workflow_requests_page_open_unique"

func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return workflowrequest.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 on the partial open-request index means a concurrent creation
		// won the race for the same page.
		if pgErr.Code == "23505" && pgErr.ConstraintName == openRequestUniqueConstraint {
			return workflowrequest.ErrAlreadyOpen
		}
	}

	return gerrors.Wrap(err, "workflow persistence")
}
