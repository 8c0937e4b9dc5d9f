package graph

import (
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/joescharf/opsdesk/internal/models"
)

type issueResolver struct {
	issue *models.Issue
}

func (r *issueResolver) ID() graphql.ID      { return graphql.ID(r.issue.ID) }
func (r *issueResolver) Title() string       { return r.issue.Title }
func (r *issueResolver) Description() string { return r.issue.Description }
func (r *issueResolver) Platform() string    { return string(r.issue.Platform) }
func (r *issueResolver) Status() string      { return string(r.issue.Status) }
func (r *issueResolver) Severity() string    { return string(r.issue.Severity) }
func (r *issueResolver) Assignee() *string   { return r.issue.Assignee }
func (r *issueResolver) CreatedAt() string   { return models.FormatTime(r.issue.CreatedAt) }
func (r *issueResolver) UpdatedAt() string   { return models.FormatTime(r.issue.UpdatedAt) }

func (r *issueResolver) Comments() *[]*commentResolver {
	out := make([]*commentResolver, len(r.issue.Comments))
	for i, c := range r.issue.Comments {
		out[i] = &commentResolver{c}
	}
	return &out
}

type commentResolver struct {
	comment *models.Comment
}

func (r *commentResolver) ID() graphql.ID    { return graphql.ID(r.comment.ID) }
func (r *commentResolver) Text() string      { return r.comment.Text }
func (r *commentResolver) Author() string    { return r.comment.Author }
func (r *commentResolver) CreatedAt() string { return models.FormatTime(r.comment.CreatedAt) }
