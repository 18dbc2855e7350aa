package repositories

import (
	"context"
	"fmt"

	"dispatch-system/internal/approval"
	apperrors "dispatch-system/pkg/errors"
)

// updateApproval - CAS-обновление колонок согласования; общая для всех таблиц с решением.
func updateApproval(ctx context.Context, q querier, table, entity, id string, next approval.State, expected approval.Status) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $1, approved_by = $2, approved_at = $3, decision_comment = $4
		WHERE id = $5 AND status = $6`, table)

	tag, err := q.Exec(ctx, query, string(next.Status), next.DecidedBy, next.DecidedAt, next.Comment, id, string(expected))
	if err != nil {
		return storageError(entity+".update_approval", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewInvalidTransitionError(entity, id, string(expected), string(next.Status))
	}
	return nil
}
