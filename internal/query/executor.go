// Package query runs read-only statements against the store, written by hand or translated from a question.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/store"
)

// Mode selects how the input of a request is interpreted
type Mode string

const (
	// ModeSQL runs the input as a statement
	ModeSQL Mode = "sql"
	// ModeNL translates the input question to a statement and runs it
	ModeNL Mode = "nl"
	// ModeAdvanced does what ModeNL does and also answers the question from the rows
	ModeAdvanced Mode = "advanced"
)

// IsValid reports whether the mode is known
func (m Mode) IsValid() bool {
	return m == ModeSQL || m == ModeNL || m == ModeAdvanced
}

// Request is one query
type Request struct {
	Mode  Mode   `json:"mode"`
	Input string `json:"input"`
}

// Result is the outcome of a query
type Result struct {
	SQL     string   `json:"sql"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// Answer is only set in advanced mode
	Answer string `json:"answer,omitempty"`
}

// Executor validates and runs queries
type Executor struct {
	store      store.Store
	translator Translator
}

// NewExecutor creates a query executor. translator may be nil when only ModeSQL is used.
func NewExecutor(st store.Store, translator Translator) *Executor {
	return &Executor{store: st, translator: translator}
}

// Run executes req
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	if !req.Mode.IsValid() {
		return nil, fmt.Errorf("unknown query mode %q", req.Mode)
	}

	sql := Sanitize(req.Input)
	if req.Mode != ModeSQL {
		if e.translator == nil {
			return nil, fmt.Errorf("%w: llm.api_key", domain.ErrMissingCredential)
		}
		translated, err := e.translator.Translate(ctx, req.Input)
		if err != nil {
			return nil, err
		}
		sql = translated
		logger.DebugCtx(ctx, "Translated question", zap.String("sql", sql))
	}

	if err := Validate(sql); err != nil {
		return nil, err
	}

	rows, err := e.store.RawQuery(ctx, sql)
	if err != nil {
		return nil, err
	}
	result := &Result{SQL: sql, Columns: rows.Columns, Rows: rows.Rows}

	if req.Mode == ModeAdvanced {
		rowsJSON, err := json.Marshal(result.Records())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rows: %w", err)
		}
		answer, err := e.translator.Summarise(ctx, req.Input, sql, string(rowsJSON))
		if err != nil {
			return nil, err
		}
		result.Answer = answer
	}

	return result, nil
}

// Records returns the rows as column name to value maps
func (r *Result) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}
