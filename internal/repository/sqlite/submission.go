package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/learnquest/internal/apperror"
	"github.com/sakif/learnquest/internal/model"
	"github.com/sakif/learnquest/internal/repository"
)

// CreateSubmission inserts an execution audit record. Submissions are
// append-only; there is no update path.
func (db *DB) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	sub.CreatedAt = time.Now().UTC()

	// Anonymous runs store NULL so the users(id) foreign key doesn't trip.
	var userID any
	if sub.UserID != "" {
		userID = sub.UserID
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO submissions
			(id, user_id, language, framework, status, duration_millis, exit_code, stdout_head, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, userID, sub.Language, sub.Framework, sub.Status,
		sub.DurationMillis, sub.ExitCode, sub.StdoutHead, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: inserting submission: %w", err)
	}

	return nil
}

func (db *DB) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, language, framework, status, duration_millis, exit_code, stdout_head, created_at
		FROM submissions
		WHERE id = ?
	`, id)

	sub, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("submission", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning submission: %w", err)
	}
	return sub, nil
}

// ListSubmissionsByUser returns the user's submissions, newest first.
func (db *DB) ListSubmissionsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Submission, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, language, framework, status, duration_millis, exit_code, stdout_head, created_at
		FROM submissions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing submissions: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning submission row: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating submissions: %w", err)
	}

	return subs, nil
}

func scanSubmission(scan func(dest ...any) error) (*model.Submission, error) {
	var (
		sub      model.Submission
		userID   sql.NullString
		exitCode sql.NullInt64
	)
	err := scan(&sub.ID, &userID, &sub.Language, &sub.Framework, &sub.Status,
		&sub.DurationMillis, &exitCode, &sub.StdoutHead, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.UserID = userID.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		sub.ExitCode = &code
	}
	return &sub, nil
}
