package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/grundbok/grundbok/internal/payroll"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypePayrollPost posts one period's payroll run to the ledger.
	TaskTypePayrollPost = "payroll:post"
)

// PayrollPostPayload identifies the run to post and the requesting user.
type PayrollPostPayload struct {
	Year   int   `json:"year"`
	Month  int   `json:"month"`
	UserID int64 `json:"user_id"`
}

// NewPayrollPostTask constructs an Asynq task.
func NewPayrollPostTask(payload PayrollPostPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePayrollPost, data), nil
}

// NewPayrollPostHandler processes TaskTypePayrollPost tasks. A run that
// fails its balance invariant is not retried: re-running produces the
// identical summary until the payroll data changes.
func NewPayrollPostHandler(svc *payroll.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PayrollPostPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		id, err := svc.PostRun(ctx, payload.Year, time.Month(payload.Month), payload.UserID)
		if err != nil {
			logger.Error("payroll post task",
				slog.Int("year", payload.Year),
				slog.Int("month", payload.Month),
				slog.Any("error", err))
			if errors.Is(err, payroll.ErrRunUnbalanced) || errors.Is(err, payroll.ErrSpecNotFound) {
				return asynq.SkipRetry
			}
			return err
		}
		logger.Info("payroll post task done",
			slog.Int("year", payload.Year),
			slog.Int("month", payload.Month),
			slog.Int64("transaction_id", id))
		return nil
	}
}
