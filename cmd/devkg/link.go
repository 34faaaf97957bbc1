package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/devkg/devkg/internal/linker"
	"github.com/devkg/devkg/internal/wikidata"
)

type linkOpts struct {
	commonOpts
	minSessions int
	confidence  float64
	workers     int
	limit       int
	dryRun      bool
}

func parseLinkFlags(args []string) (linkOpts, error) {
	var opts linkOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return opts, err
		} else if ok {
			continue
		}
		switch {
		case args[i] == "--min-sessions" && i+1 < len(args):
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return opts, fmt.Errorf("invalid --min-sessions: %s", args[i])
			}
			opts.minSessions = n
		case args[i] == "--confidence" && i+1 < len(args):
			i++
			f, err := strconv.ParseFloat(args[i], 64)
			if err != nil || f <= 0 || f > 1 {
				return opts, fmt.Errorf("invalid --confidence: %s", args[i])
			}
			opts.confidence = f
		case args[i] == "--workers" && i+1 < len(args):
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return opts, fmt.Errorf("invalid --workers: %s", args[i])
			}
			opts.workers = n
		case args[i] == "--limit" && i+1 < len(args):
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return opts, fmt.Errorf("invalid --limit: %s", args[i])
			}
			opts.limit = n
		case args[i] == "--dry-run" || args[i] == "-n":
			opts.dryRun = true
		case strings.HasPrefix(args[i], "-"):
			return opts, fmt.Errorf("unknown flag: %s", args[i])
		default:
			return opts, fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	return opts, nil
}

func runLink(args []string) error {
	opts, err := parseLinkFlags(args)
	if err != nil {
		return err
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	// CLI flags beat resolved config for the run tunables.
	if opts.minSessions == 0 {
		opts.minSessions = cfg.MinSessions()
	}
	if opts.confidence == 0 {
		opts.confidence = cfg.Confidence()
	}
	if opts.workers == 0 {
		opts.workers = cfg.Workers()
	}

	ctx := context.Background()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}
	aliases, err := loadAliases(cfg)
	if err != nil {
		return err
	}

	search := wikidata.NewClient(wikidata.Config{BaseURL: cfg.WikidataURL.Value})
	agent := linker.NewAgent(provider, search, linker.AgentConfig{})
	runner := linker.NewRunner(s, agent, aliases, linker.RunConfig{
		MinSessions:         opts.minSessions,
		Limit:               opts.limit,
		Workers:             opts.workers,
		ConfidenceThreshold: opts.confidence,
		DryRun:              opts.dryRun,
	})

	if opts.dryRun {
		fmt.Println("Dry run mode — no searches, no cache writes")
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return printJSON(report)
	}
	fmt.Printf("Candidates: %d (%d filtered)\n", report.Candidates, report.Filtered)
	fmt.Printf("Linked: %d (%d cache hits, %d low confidence, %d no match, %d errors)\n",
		report.Linked, report.CacheHits, report.LowConfidence, report.NoMatch, report.Errors)
	for _, l := range report.Links {
		fmt.Printf("  %s -> %s (%s, %.2f)\n", l.Label, l.QID, l.MatchedLabel, l.Confidence)
	}
	for _, eq := range report.Equivalences {
		fmt.Printf("  %s = %s via %s\n", eq.A, eq.B, eq.QID)
	}
	return nil
}
