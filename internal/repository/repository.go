// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage is the production implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/learnquest/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByIdentifier looks a user up by username or email.
	GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// ListSubmissionsByUser returns the user's submissions, newest first.
	ListSubmissionsByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Submission, error)
}
