package graph

import (
	"context"
	"fmt"

	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/schema"

	"github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Options are the execution limits applied to every operation
type Options struct {
	MaxDepth       int
	MaxParallelism int
}

// Request is a GraphQL operation as sent over HTTP or the websocket
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Executor runs operations against the parsed schema and records metrics
type Executor struct {
	schema  *graphql.Schema
	metrics *metrics.Metrics
}

// NewExecutor parses the schema against the root resolver
func NewExecutor(resolver *Resolver, opts Options, m *metrics.Metrics) (*Executor, error) {
	schemaOpts := []graphql.SchemaOpt{
		graphql.Logger(panicLogger{}),
	}
	if opts.MaxDepth > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxDepth(opts.MaxDepth))
	}
	if opts.MaxParallelism > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxParallelism(opts.MaxParallelism))
	}

	s, err := graphql.ParseSchema(schema.SDL, resolver, schemaOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	return &Executor{schema: s, metrics: m}, nil
}

// Exec runs a query or mutation
func (e *Executor) Exec(ctx context.Context, req Request) *graphql.Response {
	resp := e.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
	e.record(req, len(resp.Errors) == 0)
	return resp
}

// Subscribe starts a subscription operation and returns its response stream
func (e *Executor) Subscribe(ctx context.Context, req Request) (<-chan interface{}, error) {
	ch, err := e.schema.Subscribe(ctx, req.Query, req.OperationName, req.Variables)
	e.record(req, err == nil)
	return ch, err
}

func (e *Executor) record(req Request, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	e.metrics.GraphQLOperations.WithLabelValues(OperationType(req.Query, req.OperationName), status).Inc()
}

// OperationType returns query, mutation or subscription for the selected operation,
// or "unknown" when the document cannot be parsed
func OperationType(query, operationName string) string {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return "unknown"
	}
	op := doc.Operations.ForName(operationName)
	if op == nil {
		return "unknown"
	}
	return string(op.Operation)
}

type panicLogger struct{}

func (panicLogger) LogPanic(ctx context.Context, value interface{}) {
	log.Error().Interface("panic", value).Msg("Resolver panicked")
}
