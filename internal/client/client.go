// Package client talks to a running opsdesk server over GraphQL and
// exposes it as a store.Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/joescharf/opsdesk/internal/models"
	"github.com/joescharf/opsdesk/internal/store"
)

// DefaultTimeout bounds a single request unless WithTimeout overrides it.
const DefaultTimeout = 10 * time.Second

// Client implements store.Store against a remote /graphql endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ store.Store = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the GraphQL endpoint at endpoint, for example
// http://localhost:4000/graphql.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string { return c.endpoint }

// Error carries the error entries of a GraphQL response.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

var notFoundRe = regexp.MustCompile(`^Issue with ID (.+) not found\.$`)

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts a document and decodes its data into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		return toError(gr.Errors)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func toError(errs []gqlError) error {
	if len(errs) == 1 {
		if m := notFoundRe.FindStringSubmatch(errs[0].Message); m != nil {
			return &store.NotFoundError{ID: m[1]}
		}
	}
	e := &Error{}
	for _, ge := range errs {
		e.Messages = append(e.Messages, ge.Message)
	}
	return e
}

const issueFields = `id title description platform status severity assignee createdAt updatedAt comments { id text author createdAt }`

const (
	listQuery = `query ListIssues($platform: Platform, $status: Status, $severity: Severity, $assignee: String) {
  issues(platform: $platform, status: $status, severity: $severity, assignee: $assignee) { ` + issueFields + ` }
}`
	getQuery = `query GetIssue($id: ID!) {
  issue(id: $id) { ` + issueFields + ` }
}`
	createMutation = `mutation CreateIssue($input: CreateIssueInput!) {
  createIssue(input: $input) { ` + issueFields + ` }
}`
	updateMutation = `mutation UpdateIssue($input: UpdateIssueInput!) {
  updateIssue(input: $input) { ` + issueFields + ` }
}`
	commentMutation = `mutation AddComment($input: AddCommentInput!) {
  addComment(input: $input) { ` + issueFields + ` }
}`
	deleteMutation = `mutation DeleteIssue($id: ID!) {
  deleteIssue(id: $id)
}`
)

func (c *Client) ListIssues(ctx context.Context, filter store.IssueListFilter) ([]*models.Issue, error) {
	vars := map[string]any{}
	if filter.Platform != "" {
		vars["platform"] = string(filter.Platform)
	}
	if filter.Status != "" {
		vars["status"] = string(filter.Status)
	}
	if filter.Severity != "" {
		vars["severity"] = string(filter.Severity)
	}
	if filter.Assignee != "" {
		vars["assignee"] = filter.Assignee
	}

	var out struct {
		Issues []*models.Issue `json:"issues"`
	}
	if err := c.do(ctx, listQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.Issues, nil
}

func (c *Client) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	var out struct {
		Issue *models.Issue `json:"issue"`
	}
	if err := c.do(ctx, getQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	if out.Issue == nil {
		return nil, &store.NotFoundError{ID: id}
	}
	return out.Issue, nil
}

func (c *Client) CreateIssue(ctx context.Context, in models.NewIssue) (*models.Issue, error) {
	input := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"platform":    string(in.Platform),
		"severity":    string(in.Severity),
	}
	var out struct {
		CreateIssue *models.Issue `json:"createIssue"`
	}
	if err := c.do(ctx, createMutation, map[string]any{"input": input}, &out); err != nil {
		return nil, err
	}
	return out.CreateIssue, nil
}

func (c *Client) UpdateIssue(ctx context.Context, id string, upd models.IssueUpdate) (*models.Issue, error) {
	input := map[string]any{"id": id}
	if upd.Title != nil {
		input["title"] = *upd.Title
	}
	if upd.Description != nil {
		input["description"] = *upd.Description
	}
	if upd.Platform != nil {
		input["platform"] = string(*upd.Platform)
	}
	if upd.Status != nil {
		input["status"] = string(*upd.Status)
	}
	if upd.Severity != nil {
		input["severity"] = string(*upd.Severity)
	}
	if upd.Assignee != nil {
		input["assignee"] = *upd.Assignee
	}

	var out struct {
		UpdateIssue *models.Issue `json:"updateIssue"`
	}
	if err := c.do(ctx, updateMutation, map[string]any{"input": input}, &out); err != nil {
		return nil, err
	}
	return out.UpdateIssue, nil
}

func (c *Client) AddComment(ctx context.Context, issueID string, in models.NewComment) (*models.Issue, error) {
	input := map[string]any{
		"issueId": issueID,
		"text":    in.Text,
		"author":  in.Author,
	}
	var out struct {
		AddComment *models.Issue `json:"addComment"`
	}
	if err := c.do(ctx, commentMutation, map[string]any{"input": input}, &out); err != nil {
		return nil, err
	}
	return out.AddComment, nil
}

func (c *Client) DeleteIssue(ctx context.Context, id string) (bool, error) {
	var out struct {
		DeleteIssue *bool `json:"deleteIssue"`
	}
	if err := c.do(ctx, deleteMutation, map[string]any{"id": id}, &out); err != nil {
		return false, err
	}
	return out.DeleteIssue != nil && *out.DeleteIssue, nil
}
