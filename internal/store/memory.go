package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/joescharf/opsdesk/internal/models"
)

// MemoryStore implements Store over an ordered slice held for the
// lifetime of the process. Nothing is written to disk.
type MemoryStore struct {
	mu     sync.RWMutex
	issues []*models.Issue
	lastID int
	now    func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithSeed preloads the store with the default demo issues.
func WithSeed() Option {
	return func(s *MemoryStore) {
		s.issues = SeedIssues(s.timestamp())
		s.lastID = len(s.issues)
	}
}

// NewMemoryStore creates an empty store. Options are applied in order,
// so WithClock must precede WithSeed to affect seed timestamps.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time in UTC truncated to the precision
// timestamps are rendered with.
func (s *MemoryStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// touch refreshes UpdatedAt so that it is strictly later than before,
// even when the clock has not moved since the previous mutation.
func (s *MemoryStore) touch(issue *models.Issue) {
	ts := s.timestamp()
	if !ts.After(issue.UpdatedAt) {
		ts = issue.UpdatedAt.Add(time.Millisecond)
	}
	issue.UpdatedAt = ts
}

func (s *MemoryStore) indexOf(id string) int {
	for i, issue := range s.issues {
		if issue.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of stored issues.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.issues)
}

func (s *MemoryStore) ListIssues(_ context.Context, filter IssueListFilter) ([]*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		if filter.Match(issue) {
			result = append(result, issue.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) GetIssue(_ context.Context, id string) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, &NotFoundError{ID: id}
	}
	return s.issues[idx].Clone(), nil
}

func (s *MemoryStore) CreateIssue(_ context.Context, in models.NewIssue) (*models.Issue, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	now := s.timestamp()
	issue := &models.Issue{
		ID:          strconv.Itoa(s.lastID),
		Title:       in.Title,
		Description: in.Description,
		Platform:    in.Platform,
		Status:      models.StatusOpen,
		Severity:    in.Severity,
		Assignee:    nil,
		CreatedAt:   now,
		UpdatedAt:   now,
		Comments:    []*models.Comment{},
	}
	s.issues = append(s.issues, issue)
	return issue.Clone(), nil
}

func (s *MemoryStore) UpdateIssue(_ context.Context, id string, upd models.IssueUpdate) (*models.Issue, error) {
	if err := upd.Validate(); err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, &NotFoundError{ID: id}
	}
	issue := s.issues[idx]
	upd.Apply(issue)
	s.touch(issue)
	return issue.Clone(), nil
}

func (s *MemoryStore) AddComment(_ context.Context, issueID string, in models.NewComment) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(issueID)
	if idx < 0 {
		return nil, &NotFoundError{ID: issueID}
	}
	issue := s.issues[idx]
	issue.Comments = append(issue.Comments, &models.Comment{
		ID:        strconv.Itoa(len(issue.Comments) + 1),
		Text:      in.Text,
		Author:    in.Author,
		CreatedAt: s.timestamp(),
	})
	s.touch(issue)
	return issue.Clone(), nil
}

func (s *MemoryStore) DeleteIssue(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	s.issues = append(s.issues[:idx], s.issues[idx+1:]...)
	return true, nil
}
