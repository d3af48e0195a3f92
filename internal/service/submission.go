package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/xid"

	"github.com/sakif/learnquest/internal/apperror"
	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/model"
	"github.com/sakif/learnquest/internal/repository"
)

// stdoutHeadBytes bounds how much output is kept in the audit record.
// Full output is returned to the caller but never stored.
const stdoutHeadBytes = 1024

// SubmissionService records execution results and serves submission history.
type SubmissionService struct {
	subs   repository.SubmissionRepository
	logger *slog.Logger
}

func NewSubmissionService(subs repository.SubmissionRepository, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{subs: subs, logger: logger}
}

// Record persists the outcome of one execution. userID may be empty for
// anonymous runs. Failure to record is logged and returned, but callers
// typically treat it as non-fatal — the execution result still goes back to
// the client.
func (s *SubmissionService) Record(ctx context.Context, userID string, req executor.Request, res *executor.Result) (*model.Submission, error) {
	head := res.Stdout
	if len(head) > stdoutHeadBytes {
		head = head[:stdoutHeadBytes]
	}

	sub := &model.Submission{
		ID:             xid.New().String(),
		UserID:         userID,
		Language:       string(req.Language),
		Framework:      req.Framework,
		Status:         string(res.Status),
		DurationMillis: res.DurationMillis,
		ExitCode:       res.ExitCode,
		StdoutHead:     head,
	}

	if err := s.subs.CreateSubmission(ctx, sub); err != nil {
		s.logger.Error("failed to record submission",
			slog.String("userID", userID),
			slog.String("language", sub.Language),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("recording submission: %w", err)
	}

	return sub, nil
}

// List returns the caller's submission history, newest first.
func (s *SubmissionService) List(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Submission, error) {
	subs, err := s.subs.ListSubmissionsByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return subs, nil
}

// GetByID returns one submission, enforcing that it belongs to the caller.
func (s *SubmissionService) GetByID(ctx context.Context, userID, id string) (*model.Submission, error) {
	sub, err := s.subs.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching submission %s: %w", id, err)
	}
	if sub.UserID != userID {
		// Don't reveal that the record exists.
		return nil, apperror.NotFound("submission", id)
	}
	return sub, nil
}
