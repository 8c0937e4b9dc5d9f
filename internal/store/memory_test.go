package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/opsdesk/internal/models"
)

// frozenClock always returns the same instant.
func frozenClock() func() time.Time {
	t0 := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(WithClock(frozenClock()), WithSeed())
}

func strPtr(s string) *string { return &s }

func titles(issues []*models.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Title
	}
	return out
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issues, err := s.ListIssues(ctx, IssueListFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{issues[0].ID, issues[1].ID, issues[2].ID})
	assert.Nil(t, issues[0].Assignee)
	assert.Equal(t, "Alice", issues[1].AssigneeName())
	require.Len(t, issues[2].Comments, 1)
	assert.Equal(t, "Bob", issues[2].Comments[0].Author)
}

func TestNewMemoryStore_Empty(t *testing.T) {
	s := NewMemoryStore()
	issues, err := s.ListIssues(context.Background(), IssueListFilter{})
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.NotNil(t, issues, "empty result is a list, not nil")
	assert.Equal(t, 0, s.Len())
}

func TestListIssues_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter IssueListFilter
		want   []string
	}{
		{"no filter", IssueListFilter{}, []string{"Video Playback Issue on Disney+", "Login Failure on ESPN+", "Subtitle Sync Issue on Hulu"}},
		{"platform hulu", IssueListFilter{Platform: models.PlatformHulu}, []string{"Subtitle Sync Issue on Hulu"}},
		{"platform star", IssueListFilter{Platform: models.PlatformStarPlus}, []string{}},
		{"status open", IssueListFilter{Status: models.StatusOpen}, []string{"Video Playback Issue on Disney+"}},
		{"severity critical", IssueListFilter{Severity: models.SeverityCritical}, []string{"Login Failure on ESPN+"}},
		{"assignee substring case-insensitive", IssueListFilter{Assignee: "LIC"}, []string{"Login Failure on ESPN+"}},
		{"assignee skips unassigned", IssueListFilter{Assignee: "o"}, []string{"Subtitle Sync Issue on Hulu"}},
		{"conjunction matches", IssueListFilter{Platform: models.PlatformESPNPlus, Status: models.StatusInProgress}, []string{"Login Failure on ESPN+"}},
		{"conjunction excludes", IssueListFilter{Platform: models.PlatformESPNPlus, Status: models.StatusOpen}, []string{}},
		{"all four", IssueListFilter{Platform: models.PlatformHulu, Status: models.StatusResolved, Severity: models.SeverityMedium, Assignee: "bob"}, []string{"Subtitle Sync Issue on Hulu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := s.ListIssues(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(issues))
		})
	}
}

// Every combination of filters returns exactly the issues matching all of them.
func TestListIssues_ConjunctionProperty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	all, err := s.ListIssues(ctx, IssueListFilter{})
	require.NoError(t, err)

	platforms := append([]models.Platform{""}, models.Platforms...)
	statuses := append([]models.Status{""}, models.Statuses...)
	severities := append([]models.Severity{""}, models.Severities...)
	assignees := []string{"", "a", "bob", "zed"}

	for _, p := range platforms {
		for _, st := range statuses {
			for _, sev := range severities {
				for _, a := range assignees {
					f := IssueListFilter{Platform: p, Status: st, Severity: sev, Assignee: a}
					got, err := s.ListIssues(ctx, f)
					require.NoError(t, err)

					var want []string
					for _, issue := range all {
						if (p == "" || issue.Platform == p) &&
							(st == "" || issue.Status == st) &&
							(sev == "" || issue.Severity == sev) &&
							(a == "" || (issue.Assignee != nil && containsFold(*issue.Assignee, a))) {
							want = append(want, issue.ID)
						}
					}
					var gotIDs []string
					for _, issue := range got {
						gotIDs = append(gotIDs, issue.ID)
					}
					assert.Equal(t, want, gotIDs, fmt.Sprintf("%+v", f))
				}
			}
		}
	}
}

func containsFold(s, sub string) bool {
	ls, lsub := []rune(s), []rune(sub)
	for i := 0; i+len(lsub) <= len(ls); i++ {
		match := true
		for j := range lsub {
			if toLower(ls[i+j]) != toLower(lsub[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func TestGetIssue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Login Failure on ESPN+", issue.Title)

	_, err = s.GetIssue(ctx, "99")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "Issue with ID 99 not found.")
}

func TestGetIssue_ReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, "1")
	require.NoError(t, err)
	issue.Title = "mutated"
	issue.Comments = append(issue.Comments, &models.Comment{ID: "x"})

	again, err := s.GetIssue(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Video Playback Issue on Disney+", again.Title)
	assert.Empty(t, again.Comments)
}

func TestCreateIssue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue, err := s.CreateIssue(ctx, models.NewIssue{
		Title:       "X",
		Description: "Y",
		Platform:    models.PlatformESPNPlus,
		Severity:    models.SeverityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, "4", issue.ID)
	assert.Equal(t, models.StatusOpen, issue.Status)
	assert.Nil(t, issue.Assignee)
	assert.Empty(t, issue.Comments)
	assert.NotNil(t, issue.Comments)
	assert.Equal(t, issue.CreatedAt, issue.UpdatedAt)
	assert.False(t, issue.CreatedAt.IsZero())

	issues, err := s.ListIssues(ctx, IssueListFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 4)
	assert.Equal(t, "X", issues[3].Title, "new issues are appended")
}

func TestCreateIssue_Validation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateIssue(context.Background(), models.NewIssue{Title: "X", Platform: models.PlatformHulu, Severity: models.SeverityLow})
	require.Error(t, err)

	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "description", ve.Field)
	assert.Equal(t, 3, s.Len())
}

func TestCreateIssue_IDsNotReusedAfterDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.DeleteIssue(ctx, "2")
	require.NoError(t, err)
	require.True(t, ok)

	issue, err := s.CreateIssue(ctx, models.NewIssue{Title: "a", Description: "b", Platform: models.PlatformHulu, Severity: models.SeverityLow})
	require.NoError(t, err)
	assert.Equal(t, "4", issue.ID)

	ids := map[string]bool{}
	issues, err := s.ListIssues(ctx, IssueListFilter{})
	require.NoError(t, err)
	for _, i := range issues {
		assert.False(t, ids[i.ID], "duplicate id %s", i.ID)
		ids[i.ID] = true
	}
}

func TestUpdateIssue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetIssue(ctx, "1")
	require.NoError(t, err)

	status := models.StatusInProgress
	updated, err := s.UpdateIssue(ctx, "1", models.IssueUpdate{
		Status:   &status,
		Assignee: strPtr("Carol"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Carol", updated.AssigneeName())

	assert.Equal(t, before.Title, updated.Title)
	assert.Equal(t, before.Description, updated.Description)
	assert.Equal(t, before.Platform, updated.Platform)
	assert.Equal(t, before.Severity, updated.Severity)
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(before.UpdatedAt), "updatedAt must strictly increase")

	again, err := s.UpdateIssue(ctx, "1", models.IssueUpdate{Title: strPtr("renamed")})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))
	assert.Equal(t, "Carol", again.AssigneeName())
}

func TestUpdateIssue_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateIssue(context.Background(), "42", models.IssueUpdate{Title: strPtr("x")})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "42")
}

func TestUpdateIssue_InvalidEnum(t *testing.T) {
	s := newTestStore(t)
	bad := models.Severity("HUGE")
	_, err := s.UpdateIssue(context.Background(), "1", models.IssueUpdate{Severity: &bad})
	require.Error(t, err)
	assert.False(t, IsNotFound(err))

	issue, err := s.GetIssue(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, issue.Severity)
}

func TestUpdateIssue_RealClockAdvances(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s := NewMemoryStore(WithClock(clock), WithSeed())

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	updated, err := s.UpdateIssue(context.Background(), "3", models.IssueUpdate{Title: strPtr("t")})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), updated.UpdatedAt)
}

func TestAddComment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetIssue(ctx, "2")
	require.NoError(t, err)

	issue, err := s.AddComment(ctx, "2", models.NewComment{Text: "Rolled back auth deploy.", Author: "Dave"})
	require.NoError(t, err)
	require.Len(t, issue.Comments, len(before.Comments)+1)

	c := issue.Comments[len(issue.Comments)-1]
	assert.Equal(t, "2", c.ID)
	assert.Equal(t, "Rolled back auth deploy.", c.Text)
	assert.Equal(t, "Dave", c.Author)
	assert.True(t, issue.UpdatedAt.After(before.UpdatedAt))

	issue, err = s.AddComment(ctx, "1", models.NewComment{Text: "first", Author: "Eve"})
	require.NoError(t, err)
	require.Len(t, issue.Comments, 1)
	assert.Equal(t, "1", issue.Comments[0].ID, "comment ids are per issue")
}

func TestAddComment_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddComment(context.Background(), "9", models.NewComment{Text: "x", Author: "y"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAddComment_EmptyTextStored(t *testing.T) {
	s := newTestStore(t)

	issue, err := s.AddComment(context.Background(), "1", models.NewComment{Text: "", Author: "ops"})
	require.NoError(t, err)
	require.Len(t, issue.Comments, 1)
	assert.Equal(t, "", issue.Comments[0].Text)
	assert.Equal(t, "ops", issue.Comments[0].Author)

	_, err = s.AddComment(context.Background(), "99", models.NewComment{})
	assert.True(t, IsNotFound(err))
}

func TestDeleteIssue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.DeleteIssue(ctx, "2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteIssue(ctx, "2")
	require.NoError(t, err)
	assert.False(t, ok, "second delete of the same id reports false")

	_, err = s.GetIssue(ctx, "2")
	assert.True(t, IsNotFound(err))

	issues, err := s.ListIssues(ctx, IssueListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Video Playback Issue on Disney+", "Subtitle Sync Issue on Hulu"}, titles(issues))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(WithSeed())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.CreateIssue(ctx, models.NewIssue{Title: "t", Description: "d", Platform: models.PlatformHulu, Severity: models.SeverityLow})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.AddComment(ctx, "1", models.NewComment{Text: "x", Author: "y"})
			_, _ = s.ListIssues(ctx, IssueListFilter{Platform: models.PlatformHulu})
		}()
	}
	wg.Wait()

	assert.Equal(t, 23, s.Len())
	issue, err := s.GetIssue(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, issue.Comments, 20)
}
