package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"bucket-list-backend/internal/schema"

	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

var schemaRaw bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the GraphQL schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if schemaRaw {
			_, err := fmt.Fprint(out, schema.SDL)
			return err
		}
		return schema.Format(out)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [document]",
	Short: "Validate a GraphQL document against the schema",
	Long: `Validate a query, mutation or subscription document against the schema
without executing it.

Examples:
  bucketlist validate '{ getUserByUsername(username: "ana") { id } }'
  cat operations.graphql | bucketlist validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := documentFrom(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if errs := schema.Validate(doc); len(errs) > 0 {
			return formatGraphQLErrors(errs)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaRaw, "raw", false, "Print the SDL as embedded instead of formatted")
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(validateCmd)
}

// documentFrom takes the document from the single argument or from piped stdin
func documentFrom(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("checking stdin: %w", err)
		}
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return "", fmt.Errorf("no document provided (pass as argument or pipe to stdin)")
		}
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	doc := strings.TrimSpace(string(data))
	if doc == "" {
		return "", fmt.Errorf("no document provided (pass as argument or pipe to stdin)")
	}
	return doc, nil
}

// formatGraphQLErrors folds GraphQL errors into a single error
func formatGraphQLErrors(errs gqlerror.List) error {
	if len(errs) == 1 {
		return fmt.Errorf("graphql: %s", errs[0].Message)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql errors:\n  %s", strings.Join(msgs, "\n  "))
}
