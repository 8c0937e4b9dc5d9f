package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/opsdesk/internal/api"
	"github.com/joescharf/opsdesk/internal/client"
	"github.com/joescharf/opsdesk/internal/models"
	"github.com/joescharf/opsdesk/internal/store"
)

// testServer starts an API server over a seeded store and points the
// shared client at it. It returns the store and the captured stdout.
func testServer(t *testing.T) (*store.MemoryStore, *bytes.Buffer) {
	t.Helper()
	testEnv(t)

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	s := store.NewMemoryStore(store.WithSeed())
	srv, err := api.NewServer(s, api.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	dataStore = client.New(ts.URL+"/graphql", client.WithTimeout(5*time.Second))

	out := &bytes.Buffer{}
	ui.Out = out
	ui.ErrOut = &bytes.Buffer{}

	resetIssueFlags(t)
	return s, out
}

func resetIssueFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		issueTitle, issueDesc, issuePlatform = "", "", ""
		issueStatus, issueSeverity, issueAssignee = "", "", ""
		commentText, commentAuthor = "", ""
		exportFormat, exportOutput = "yaml", ""
	}
	reset()
	t.Cleanup(reset)
}

func TestIssueList(t *testing.T) {
	_, out := testServer(t)

	require.NoError(t, issueListRun(context.Background()))
	assert.Contains(t, out.String(), "Video Playback Issue on Disney+")
	assert.Contains(t, out.String(), "Login Failure on ESPN+")
	assert.Contains(t, out.String(), "Subtitle Sync Issue on Hulu")
}

func TestIssueList_Filtered(t *testing.T) {
	_, out := testServer(t)
	issuePlatform = "espn_plus"

	require.NoError(t, issueListRun(context.Background()))
	assert.Contains(t, out.String(), "Login Failure on ESPN+")
	assert.NotContains(t, out.String(), "Subtitle Sync Issue on Hulu")
}

func TestIssueList_NoMatch(t *testing.T) {
	_, out := testServer(t)
	issueStatus = "closed"

	require.NoError(t, issueListRun(context.Background()))
	assert.Contains(t, out.String(), "No issues found.")
}

func TestIssueList_InvalidFilter(t *testing.T) {
	testServer(t)
	issueSeverity = "urgent"

	err := issueListRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid severity")
}

func TestIssueShow(t *testing.T) {
	_, out := testServer(t)

	require.NoError(t, issueShowRun(context.Background(), "2"))
	assert.Contains(t, out.String(), "#2 Login Failure on ESPN+")
	assert.Contains(t, out.String(), "Investigating potential authentication service issues.")
}

func TestIssueShow_NotFound(t *testing.T) {
	testServer(t)

	err := issueShowRun(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestIssueCreate(t *testing.T) {
	s, out := testServer(t)
	issueTitle = "Stream stalls at halftime"
	issueDesc = "Live streams freeze during peak load"
	issuePlatform = "espn_plus"
	issueSeverity = "high"

	require.NoError(t, issueCreateRun(context.Background()))
	assert.Contains(t, out.String(), "Created issue #4")

	issue, err := s.GetIssue(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, models.PlatformESPNPlus, issue.Platform)
	assert.Equal(t, models.StatusOpen, issue.Status)
}

func TestIssueCreate_DryRun(t *testing.T) {
	s, _ := testServer(t)
	dryRun = true
	t.Cleanup(func() { dryRun = false })
	issueTitle, issueDesc, issuePlatform, issueSeverity = "t", "d", "hulu", "low"

	require.NoError(t, issueCreateRun(context.Background()))
	assert.Equal(t, 3, s.Len())
}

func TestIssueCreate_InvalidPlatform(t *testing.T) {
	s, _ := testServer(t)
	issueTitle, issueDesc, issuePlatform, issueSeverity = "t", "d", "netflix", "low"

	err := issueCreateRun(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, s.Len())
}

// updateCmd returns a fresh command carrying the update flags, so
// Changed reflects only what the test sets.
func updateCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "update"}
	c.Flags().StringVar(&issueTitle, "title", "", "")
	c.Flags().StringVar(&issueDesc, "desc", "", "")
	c.Flags().StringVar(&issuePlatform, "platform", "", "")
	c.Flags().StringVar(&issueStatus, "status", "", "")
	c.Flags().StringVar(&issueSeverity, "severity", "", "")
	c.Flags().StringVar(&issueAssignee, "assignee", "", "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestIssueUpdateFromFlags(t *testing.T) {
	testServer(t)

	upd, err := issueUpdateFromFlags(updateCmd(t, "--status", "resolved", "--assignee", ""))
	require.NoError(t, err)
	require.NotNil(t, upd.Status)
	assert.Equal(t, models.StatusResolved, *upd.Status)
	require.NotNil(t, upd.Assignee)
	assert.Equal(t, "", *upd.Assignee)
	assert.Nil(t, upd.Title)
	assert.Nil(t, upd.Platform)

	_, err = issueUpdateFromFlags(updateCmd(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no updates specified")

	_, err = issueUpdateFromFlags(updateCmd(t, "--platform", "netflix"))
	assert.Error(t, err)
}

func TestIssueUpdate(t *testing.T) {
	s, out := testServer(t)

	upd, err := issueUpdateFromFlags(updateCmd(t, "--severity", "critical", "--assignee", "Carol"))
	require.NoError(t, err)
	require.NoError(t, issueUpdateRun(context.Background(), "1", upd))
	assert.Contains(t, out.String(), "Updated issue #1")

	issue, err := s.GetIssue(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, issue.Severity)
	assert.Equal(t, "Carol", issue.AssigneeName())
	assert.Equal(t, models.PlatformDisneyPlus, issue.Platform)
}

func TestIssueUpdate_NotFound(t *testing.T) {
	testServer(t)
	title := "x"

	err := issueUpdateRun(context.Background(), "99", models.IssueUpdate{Title: &title})
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
	assert.Contains(t, err.Error(), "Issue with ID 99 not found.")
}

func TestIssueComment(t *testing.T) {
	s, out := testServer(t)
	commentText = "Rolled back the CDN config."
	commentAuthor = "Dana"

	require.NoError(t, issueCommentRun(context.Background(), "1"))
	assert.Contains(t, out.String(), "(1 comments)")

	issue, err := s.GetIssue(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, issue.Comments, 1)
	assert.Equal(t, "Dana", issue.Comments[0].Author)
}

func TestIssueComment_Missing(t *testing.T) {
	testServer(t)
	commentText = "no author"

	err := issueCommentRun(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author")
}

func TestIssueDelete(t *testing.T) {
	s, out := testServer(t)

	require.NoError(t, issueDeleteRun(context.Background(), "3"))
	assert.Contains(t, out.String(), "Deleted issue #3")
	assert.Equal(t, 2, s.Len())

	// Deleting again is a warning, not an error.
	require.NoError(t, issueDeleteRun(context.Background(), "3"))
}

func TestExport_JSON(t *testing.T) {
	_, out := testServer(t)
	exportFormat = "json"

	require.NoError(t, exportRun(context.Background()))

	var snap struct {
		Count  int            `json:"count"`
		Issues []models.Issue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, 3, snap.Count)
	require.Len(t, snap.Issues, 3)
	assert.Equal(t, "Bob", snap.Issues[2].AssigneeName())
}

func TestExport_YAMLFile(t *testing.T) {
	testServer(t)
	path := filepath.Join(t.TempDir(), "issues.yaml")
	exportOutput = path

	require.NoError(t, exportRun(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap struct {
		Count  int `yaml:"count"`
		Issues []struct {
			ID       string  `yaml:"id"`
			Platform string  `yaml:"platform"`
			Assignee *string `yaml:"assignee"`
		} `yaml:"issues"`
	}
	require.NoError(t, yaml.Unmarshal(data, &snap))
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, "DISNEY_PLUS", snap.Issues[0].Platform)
	assert.Nil(t, snap.Issues[0].Assignee)
}

func TestExport_UnknownFormat(t *testing.T) {
	testServer(t)
	exportFormat = "csv"

	err := exportRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestGetStore_UsesServerURL(t *testing.T) {
	testEnv(t)

	s, err := getStore()
	require.NoError(t, err)
	c, ok := s.(*client.Client)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:4000/graphql", c.Endpoint())
}
