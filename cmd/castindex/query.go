package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/query"
)

const DEFAULT_QUERY_OUTPUT_DIR = "data/queries"

func runQuery(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	sqlMode := fs.Bool("sql", false, "Run the input as a read-only statement")
	nlMode := fs.Bool("nl", false, "Translate the input question to a statement and run it")
	advancedMode := fs.Bool("advanced", false, "Like -nl, and also answer the question from the rows")
	saveCSV := fs.Bool("csv", false, "Save the rows as a CSV file")
	outDir := fs.String("out", DEFAULT_QUERY_OUTPUT_DIR, "Directory of CSV files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var mode query.Mode
	switch {
	case *sqlMode:
		mode = query.ModeSQL
	case *nlMode:
		mode = query.ModeNL
	case *advancedMode:
		mode = query.ModeAdvanced
	default:
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
		return nil
	}

	input := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if input == "" {
		return errors.New("query needs an input")
	}

	var translator query.Translator
	if mode != query.ModeSQL {
		t, err := query.NewLLMTranslator(a.cfg.LLM, a.db.Dialector.Name())
		if err != nil && !errors.Is(err, domain.ErrMissingCredential) {
			return err
		}
		// A nil translator makes the executor report the missing credential
		if err == nil {
			translator = t
		}
	}

	result, err := query.NewExecutor(a.store, translator).Run(ctx, query.Request{Mode: mode, Input: input})
	if err != nil {
		return err
	}

	if mode != query.ModeSQL {
		fmt.Printf("-- %s\n", result.SQL)
	}
	if err := printRows(result); err != nil {
		return err
	}
	if result.Answer != "" {
		fmt.Printf("\n%s\n", result.Answer)
	}

	if *saveCSV {
		path, err := query.SaveCSV(a.fs, *outDir, a.clock.Now(), result)
		if err != nil {
			return err
		}
		logger.InfoCtx(ctx, "Saved query result", zap.String("path", path), zap.Int("rows", len(result.Rows)))
	}
	return nil
}

func printRows(result *query.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
	return w.Flush()
}
