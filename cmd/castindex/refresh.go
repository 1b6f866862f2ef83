package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/fetcher"
	"github.com/feral-file/castindex/internal/indexer"
	"github.com/feral-file/castindex/internal/providers/alchemy"
	"github.com/feral-file/castindex/internal/providers/ensdata"
	"github.com/feral-file/castindex/internal/providers/searchcaster"
	"github.com/feral-file/castindex/internal/providers/warpcast"
)

// refreshOrder is the order used by "refresh all": enrichment needs users,
// ENS and transfers need resolved addresses, reactions need casts.
var refreshOrder = []string{"users", "casts", "reactions", "enrich", "ens", "transactions"}

func runRefresh(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("refresh needs exactly one target, one of %v or all", refreshOrder)
	}

	targets := []string{args[0]}
	if args[0] == "all" {
		targets = refreshOrder
	}

	// build every pipeline first so a missing credential fails before any fetch
	pipelines := make([]indexer.Pipeline, 0, len(targets))
	for _, target := range targets {
		pipeline, cleanup, err := a.pipeline(ctx, target)
		if err != nil {
			return err
		}
		defer cleanup()
		pipelines = append(pipelines, pipeline)
	}

	runner := indexer.NewRunner(a.store, a.clock)
	var errs []error
	for i, pipeline := range pipelines {
		if _, err := runner.Run(ctx, pipeline); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", targets[i], err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	return errors.Join(errs...)
}

// pipeline builds the pipeline of target. cleanup releases the connections it opened.
func (a *app) pipeline(ctx context.Context, target string) (indexer.Pipeline, func(), error) {
	noop := func() {}
	paginator := fetcher.NewPaginator(a.clock, a.cfg.Fetch.PageDelay)
	fetchCfg := a.cfg.Fetch

	switch target {
	case "users", "casts", "reactions":
		if err := a.cfg.RequireWarpcast(); err != nil {
			return nil, noop, err
		}
		client := warpcast.NewClient(a.providerHTTP("warpcast"), a.cfg.Warpcast.URL, a.cfg.Warpcast.APIKey, a.json)
		switch target {
		case "users":
			return indexer.NewUsersPipeline(client, a.store, paginator, fetchCfg), noop, nil
		case "casts":
			return indexer.NewCastsPipeline(client, a.store, paginator, fetchCfg), noop, nil
		default:
			return indexer.NewReactionsPipeline(client, a.store, paginator, a.clock, fetchCfg), noop, nil
		}

	case "enrich":
		client := searchcaster.NewClient(a.providerHTTP("searchcaster"), a.cfg.Searchcaster.URL, a.json)
		return indexer.NewEnrichPipeline(client, a.store, fetchCfg), noop, nil

	case "ens":
		client := ensdata.NewClient(a.providerHTTP("ensdata"), a.cfg.Ensdata.URL, a.json)
		return indexer.NewEnsPipeline(client, a.store, fetchCfg), noop, nil

	case "transactions":
		if err := a.cfg.RequireAlchemy(); err != nil {
			return nil, noop, err
		}
		ethClient, err := adapter.NewEthClientDialer().Dial(ctx, a.cfg.EthRPCURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to dial ethereum node: %w", err)
		}
		client := alchemy.NewClient(a.providerHTTP("alchemy"), ethClient, a.cfg.Alchemy.Endpoint(), a.cfg.Alchemy.APIKey, a.json)
		return indexer.NewTransactionsPipeline(client, a.store, paginator, fetchCfg), ethClient.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown refresh target %q, expected one of %v or all", target, refreshOrder)
	}
}
