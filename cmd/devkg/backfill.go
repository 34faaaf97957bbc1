package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v2"

	"github.com/devkg/devkg/internal/pipeline"
	"github.com/devkg/devkg/internal/store"
)

type backfillOpts struct {
	commonOpts
	limit            int
	sort             string
	force            bool
	includeSubagents bool
	dryRun           bool
	noProgress       bool
	workers          int
}

func parseBackfillFlags(args []string) (backfillOpts, error) {
	var opts backfillOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return opts, err
		} else if ok {
			continue
		}
		switch {
		case args[i] == "--limit" && i+1 < len(args):
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return opts, fmt.Errorf("invalid --limit: %s", args[i])
			}
			opts.limit = n
		case args[i] == "--sort" && i+1 < len(args):
			i++
			opts.sort = args[i]
			switch opts.sort {
			case "name", "newest", "oldest":
			default:
				return opts, fmt.Errorf("invalid --sort %q (want name, newest, or oldest)", opts.sort)
			}
		case args[i] == "--workers" && i+1 < len(args):
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return opts, fmt.Errorf("invalid --workers: %s", args[i])
			}
			opts.workers = n
		case args[i] == "--force":
			opts.force = true
		case args[i] == "--include-subagents":
			opts.includeSubagents = true
		case args[i] == "--dry-run" || args[i] == "-n":
			opts.dryRun = true
		case args[i] == "--no-progress":
			opts.noProgress = true
		case strings.HasPrefix(args[i], "-"):
			return opts, fmt.Errorf("unknown flag: %s", args[i])
		default:
			return opts, fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	return opts, nil
}

func runBackfill(args []string) error {
	opts, err := parseBackfillFlags(args)
	if err != nil {
		return err
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	ctx := context.Background()
	p, s, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.workers == 0 {
		opts.workers = cfg.Workers()
	}

	bopts := pipeline.BackfillOpts{
		Limit:            opts.limit,
		Sort:             opts.sort,
		Force:            opts.force,
		IncludeSubagents: opts.includeSubagents,
		DryRun:           opts.dryRun,
		Workers:          opts.workers,
	}

	var bar *progressbar.ProgressBar
	if !opts.noProgress && !opts.jsonOut {
		bopts.Progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.New(total)
			}
			_ = bar.Add(1)
		}
	}

	if opts.dryRun {
		fmt.Println("Dry run mode — no changes will be written")
	}

	report, err := p.Backfill(ctx, store.ExpandPath(cfg.ProjectsDir.Value), bopts)
	if bar != nil {
		fmt.Println()
	}
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return printJSON(report)
	}
	fmt.Printf("Files: %d (%d unchanged, %d errors)\n", report.Files, report.Unchanged, report.FileErrors)
	fmt.Printf("Messages: %d (%d cache hits, %d degraded)\n", report.Messages, report.CacheHits, report.Degraded)
	fmt.Printf("Triples: %d\n", report.Triples)
	for _, path := range report.ErrorPaths {
		fmt.Printf("  failed: %s\n", path)
	}
	return nil
}
