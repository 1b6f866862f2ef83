package rest

import (
	"time"

	"github.com/feral-file/castindex/internal/store"
	"github.com/feral-file/castindex/internal/store/schema"
)

// QueryRequest is the body of POST /v1/query
type QueryRequest struct {
	Mode  string `json:"mode" binding:"required"`
	Input string `json:"input" binding:"required"`
}

// QueryResponse is the JSON result of a query
type QueryResponse struct {
	SQL      string   `json:"sql"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Answer   string   `json:"answer,omitempty"`
}

// FetchRunResponse is one journaled pipeline run
type FetchRunResponse struct {
	ID        string     `json:"id"`
	Pipeline  string     `json:"pipeline"`
	Status    string     `json:"status"`
	Fetched   int        `json:"fetched"`
	Inserted  int        `json:"inserted"`
	Merged    int        `json:"merged"`
	Skipped   int        `json:"skipped"`
	Dropped   int        `json:"dropped"`
	Error     *string    `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// StatsResponse is the body of GET /v1/stats
type StatsResponse struct {
	Tables     map[string]int64   `json:"tables"`
	Watermarks store.Watermarks   `json:"watermarks"`
	Runs       []FetchRunResponse `json:"runs"`
}

func fetchRunFromSchema(r schema.FetchRun) FetchRunResponse {
	return FetchRunResponse{
		ID:        r.ID,
		Pipeline:  r.Pipeline,
		Status:    r.Status,
		Fetched:   r.Fetched,
		Inserted:  r.Inserted,
		Merged:    r.Merged,
		Skipped:   r.Skipped,
		Dropped:   r.Dropped,
		Error:     r.Error,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
}
