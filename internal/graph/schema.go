// Package graph binds the issue tracker's GraphQL schema to a store.Store.
package graph

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/joescharf/opsdesk/internal/store"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema definition served by the API.
func SDL() string { return schemaSDL }

// NewSchema parses the schema and binds it to a resolver backed by s.
// Resolver panics are logged through logger, which may be nil.
func NewSchema(s store.Store, logger *slog.Logger) (*graphql.Schema, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := graphql.ParseSchema(schemaSDL, NewResolver(s),
		graphql.Logger(panicLogger{logger}),
		graphql.MaxDepth(8),
	)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return schema, nil
}

// panicLogger adapts slog to the resolver panic hook.
type panicLogger struct {
	l *slog.Logger
}

func (p panicLogger) LogPanic(ctx context.Context, value interface{}) {
	p.l.ErrorContext(ctx, "graphql resolver panic", "panic", value)
}
