package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/opsdesk/internal/models"
)

// IssueListFilter specifies filters for listing issues. Zero values match
// everything; supplied filters are combined with AND.
type IssueListFilter struct {
	Platform models.Platform
	Status   models.Status
	Severity models.Severity
	Assignee string // case-insensitive substring
}

// Match reports whether issue satisfies every supplied filter.
func (f IssueListFilter) Match(issue *models.Issue) bool {
	if f.Platform != "" && issue.Platform != f.Platform {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Severity != "" && issue.Severity != f.Severity {
		return false
	}
	if f.Assignee != "" {
		if issue.Assignee == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(*issue.Assignee), strings.ToLower(f.Assignee)) {
			return false
		}
	}
	return true
}

// Store defines the issue data layer.
type Store interface {
	ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error)
	// GetIssue returns a *NotFoundError when no issue has the id.
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	CreateIssue(ctx context.Context, in models.NewIssue) (*models.Issue, error)
	UpdateIssue(ctx context.Context, id string, upd models.IssueUpdate) (*models.Issue, error)
	AddComment(ctx context.Context, issueID string, in models.NewComment) (*models.Issue, error)
	// DeleteIssue reports whether an issue was removed. A missing id is not an error.
	DeleteIssue(ctx context.Context, id string) (bool, error)
}

// NotFoundError is returned when an id does not resolve to a record.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Issue with ID %s not found.", e.ID)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
