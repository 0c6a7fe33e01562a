package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

// BatchFact is one triple in a §6.5 POST /batch request body.
type BatchFact struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence,omitempty"`
}

// BatchRequest is §6.5's request body shape.
type BatchRequest struct {
	Facts []BatchFact `json:"facts"`
}

// BatchResponse is §6.5's response body shape.
type BatchResponse struct {
	NodesAdded int   `json:"nodes_added"`
	EdgesAdded int   `json:"edges_added"`
	DurationMs int64 `json:"duration_ms"`
}

// BatchIngester commits a batch of structured facts directly into the
// graph, bypassing the teaching-file grammar (§6.5 is a distinct,
// already-structured entry point).
type BatchIngester interface {
	IngestFacts(ctx context.Context, facts []BatchFact) (nodesAdded, edgesAdded int, err error)
}

// NewRouter builds the §6.5 HTTP ingest surface: a single POST /batch
// route on a chi router, matching the teacher's worker/service.go
// pattern of one chi.Router per external surface.
func NewRouter(ingester BatchIngester) chi.Router {
	r := chi.NewRouter()
	r.Post("/batch", handleBatch(ingester))
	return r
}

func handleBatch(ingester BatchIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		nodes, edges, err := ingester.IngestFacts(r.Context(), req.Facts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(BatchResponse{
			NodesAdded: nodes,
			EdgesAdded: edges,
			DurationMs: time.Since(start).Milliseconds(),
		})
	}
}
