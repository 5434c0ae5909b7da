package handlers

import (
	"encoding/json"
	"net/http"

	"bucket-list-backend/internal/graph"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/gorilla/websocket"
)

// GraphQLHandler serves the GraphQL endpoint over HTTP
type GraphQLHandler struct {
	exec          *graph.Executor
	subscriptions http.Handler
	playground    http.Handler
}

// NewGraphQLHandler creates a new GraphQL handler
func NewGraphQLHandler(exec *graph.Executor, subscriptions http.Handler, playgroundEnabled bool, endpoint string) *GraphQLHandler {
	h := &GraphQLHandler{
		exec:          exec,
		subscriptions: subscriptions,
	}
	if playgroundEnabled {
		h.playground = playground.Handler("Bucket List", endpoint)
	}
	return h
}

// Query handles POST /graphql
func (h *GraphQLHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req graph.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		respondError(w, "query is required", http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, h.exec.Exec(r.Context(), req))
}

// Get handles GET /graphql: websocket upgrades, ?query= reads, or the playground
func (h *GraphQLHandler) Get(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.subscriptions.ServeHTTP(w, r)
		return
	}

	if query := r.URL.Query().Get("query"); query != "" {
		req := graph.Request{
			Query:         query,
			OperationName: r.URL.Query().Get("operationName"),
		}
		if vars := r.URL.Query().Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				respondError(w, "Invalid variables", http.StatusBadRequest)
				return
			}
		}
		if graph.OperationType(req.Query, req.OperationName) == "mutation" {
			respondError(w, "mutations require POST", http.StatusMethodNotAllowed)
			return
		}
		respondJSON(w, http.StatusOK, h.exec.Exec(r.Context(), req))
		return
	}

	if h.playground == nil {
		respondError(w, "playground is disabled", http.StatusNotFound)
		return
	}
	h.playground.ServeHTTP(w, r)
}
