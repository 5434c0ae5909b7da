package cmd

import (
	"encoding/json"
	"fmt"

	"bucket-list-backend/internal/graph"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

var (
	queryJSON      bool
	queryVariables string
	queryOperation string
)

var queryCmd = &cobra.Command{
	Use:   "query [document]",
	Short: "Execute a GraphQL query or mutation against the configured store",
	Long: `Execute a GraphQL query or mutation directly against the configured
database, without starting the server.

Examples:
  bucketlist query '{ getUserByUsername(username: "ana") { id firstName } }'
  bucketlist query -v '{"id": "abc"}' 'query($id: ID!) { getBuckets(userId: $id) { title } }'
  cat query.graphql | bucketlist query --json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := documentFrom(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		var variables map[string]interface{}
		if queryVariables != "" {
			if err := json.Unmarshal([]byte(queryVariables), &variables); err != nil {
				return fmt.Errorf("invalid variables JSON: %w", err)
			}
		}

		if graph.OperationType(doc, queryOperation) == "subscription" {
			return fmt.Errorf("subscriptions need a websocket; use the server's /graphql/ws endpoint")
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.executor.Exec(cmd.Context(), graph.Request{
			Query:         doc,
			OperationName: queryOperation,
			Variables:     variables,
		})
		if len(resp.Errors) > 0 {
			errs := make(gqlerror.List, 0, len(resp.Errors))
			for _, e := range resp.Errors {
				errs = append(errs, &gqlerror.Error{Message: e.Message})
			}
			return formatGraphQLErrors(errs)
		}

		out := cmd.OutOrStdout()
		if queryJSON {
			fmt.Fprintln(out, string(resp.Data))
		} else {
			fmt.Fprintln(out, string(pretty.Color(pretty.Pretty(resp.Data), nil)))
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output raw JSON")
	queryCmd.Flags().StringVarP(&queryVariables, "variables", "v", "", "Query variables as JSON")
	queryCmd.Flags().StringVarP(&queryOperation, "operation", "o", "", "Operation name")
	rootCmd.AddCommand(queryCmd)
}
