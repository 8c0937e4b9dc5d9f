package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/joescharf/opsdesk/internal/models"
	"github.com/joescharf/opsdesk/internal/store"
)

// Resolver is the root resolver for both Query and Mutation.
type Resolver struct {
	store store.Store
}

// NewResolver creates a root resolver reading and writing s.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// --- Query ---

type issuesArgs struct {
	Platform *string
	Status   *string
	Severity *string
	Assignee *string
}

func (r *Resolver) Issues(ctx context.Context, args issuesArgs) (*[]*issueResolver, error) {
	var filter store.IssueListFilter
	if args.Platform != nil {
		filter.Platform = models.Platform(*args.Platform)
	}
	if args.Status != nil {
		filter.Status = models.Status(*args.Status)
	}
	if args.Severity != nil {
		filter.Severity = models.Severity(*args.Severity)
	}
	if args.Assignee != nil {
		filter.Assignee = *args.Assignee
	}

	issues, err := r.store.ListIssues(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*issueResolver, len(issues))
	for i, issue := range issues {
		out[i] = &issueResolver{issue}
	}
	return &out, nil
}

func (r *Resolver) Issue(ctx context.Context, args struct{ ID graphql.ID }) (*issueResolver, error) {
	issue, err := r.store.GetIssue(ctx, string(args.ID))
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issueResolver{issue}, nil
}

// --- Mutation ---

type createIssueInput struct {
	Title       string
	Description string
	Platform    string
	Severity    string
}

func (r *Resolver) CreateIssue(ctx context.Context, args struct{ Input createIssueInput }) (*issueResolver, error) {
	issue, err := r.store.CreateIssue(ctx, models.NewIssue{
		Title:       args.Input.Title,
		Description: args.Input.Description,
		Platform:    models.Platform(args.Input.Platform),
		Severity:    models.Severity(args.Input.Severity),
	})
	if err != nil {
		return nil, err
	}
	return &issueResolver{issue}, nil
}

type updateIssueInput struct {
	ID          graphql.ID
	Title       *string
	Description *string
	Platform    *string
	Status      *string
	Severity    *string
	Assignee    *string
}

// update converts the input into a typed partial update. Absent and
// explicitly null fields both mean "leave unchanged".
func (in updateIssueInput) update() models.IssueUpdate {
	upd := models.IssueUpdate{
		Title:       in.Title,
		Description: in.Description,
		Assignee:    in.Assignee,
	}
	if in.Platform != nil {
		p := models.Platform(*in.Platform)
		upd.Platform = &p
	}
	if in.Status != nil {
		s := models.Status(*in.Status)
		upd.Status = &s
	}
	if in.Severity != nil {
		s := models.Severity(*in.Severity)
		upd.Severity = &s
	}
	return upd
}

func (r *Resolver) UpdateIssue(ctx context.Context, args struct{ Input updateIssueInput }) (*issueResolver, error) {
	issue, err := r.store.UpdateIssue(ctx, string(args.Input.ID), args.Input.update())
	if err != nil {
		return nil, err
	}
	return &issueResolver{issue}, nil
}

type addCommentInput struct {
	IssueID graphql.ID
	Text    string
	Author  string
}

func (r *Resolver) AddComment(ctx context.Context, args struct{ Input addCommentInput }) (*issueResolver, error) {
	issue, err := r.store.AddComment(ctx, string(args.Input.IssueID), models.NewComment{
		Text:   args.Input.Text,
		Author: args.Input.Author,
	})
	if err != nil {
		return nil, err
	}
	return &issueResolver{issue}, nil
}

func (r *Resolver) DeleteIssue(ctx context.Context, args struct{ ID graphql.ID }) (*bool, error) {
	ok, err := r.store.DeleteIssue(ctx, string(args.ID))
	if err != nil {
		return nil, err
	}
	return &ok, nil
}
