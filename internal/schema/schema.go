// Package schema holds the GraphQL contract of the service and validates
// executable documents against it.
package schema

import (
	_ "embed"
	"fmt"
	"io"
	"sync"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// SDL is the schema definition the executor is built from
//
//go:embed schema.graphqls
var SDL string

var (
	loadOnce sync.Once
	loaded   *ast.Schema
	loadErr  error
)

// Load parses SDL. The result is cached.
func Load() (*ast.Schema, error) {
	loadOnce.Do(func() {
		s, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphqls", Input: SDL})
		if err != nil {
			loadErr = fmt.Errorf("failed to load schema: %w", err)
			return
		}
		loaded = s
	})
	return loaded, loadErr
}

// Validate checks an executable document against the schema.
// A nil list means the document is valid.
func Validate(doc string) gqlerror.List {
	s, err := Load()
	if err != nil {
		return gqlerror.List{gqlerror.Errorf("%s", err)}
	}
	_, errs := gqlparser.LoadQuery(s, doc)
	return errs
}

// Format writes the schema in canonical SDL form
func Format(w io.Writer) error {
	s, err := Load()
	if err != nil {
		return err
	}
	formatter.NewFormatter(w, formatter.WithIndent("  ")).FormatSchema(s)
	return nil
}
