package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/devkg/devkg/internal/mcp"
)

func runStats(args []string) error {
	var opts commonOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return err
		} else if ok {
			continue
		}
		return fmt.Errorf("unknown flag: %s", args[i])
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(context.Background(), cfg.Confidence())
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return printJSON(stats)
	}
	fmt.Printf("Database: %s\n\n", s.Path())
	fmt.Printf("Triples:          %d\n", stats.TripleCount)
	fmt.Printf("Entities:         %d (%d in 2+ sessions)\n", stats.EntityCount, stats.MultiSessionEnt)
	fmt.Printf("Sessions:         %d\n", stats.SessionCount)
	fmt.Printf("Cached messages:  %d\n", stats.CachedMessages)
	fmt.Printf("Processed files:  %d\n", stats.ProcessedFiles)
	fmt.Printf("Links resolved:   %d (%d accepted, %d no match)\n",
		stats.LinksResolved, stats.LinksAccepted, stats.LinksNoMatch)
	if len(stats.Predicates) > 0 {
		fmt.Println("\nPredicates:")
		for _, pc := range stats.Predicates {
			fmt.Printf("  %-24s %d\n", pc.Predicate, pc.Count)
		}
	}
	return nil
}

func runWipeCache(args []string) error {
	var opts commonOpts
	wipeExtraction := false
	wipeLinks := false
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return err
		} else if ok {
			continue
		}
		switch args[i] {
		case "--extraction":
			wipeExtraction = true
		case "--links":
			wipeLinks = true
		case "--all":
			wipeExtraction = true
			wipeLinks = true
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	if !wipeExtraction && !wipeLinks {
		return fmt.Errorf("usage: devkg wipe-cache --extraction|--links|--all")
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	var wiped []string
	if wipeExtraction {
		if err := s.WipeExtractionCache(ctx); err != nil {
			return err
		}
		wiped = append(wiped, "extraction cache")
	}
	if wipeLinks {
		if err := s.WipeLinkCache(ctx); err != nil {
			return err
		}
		wiped = append(wiped, "link cache")
	}
	fmt.Printf("Wiped %s\n", strings.Join(wiped, " and "))
	return nil
}

func runShowConfig(args []string) error {
	var opts commonOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return err
		} else if ok {
			continue
		}
		return fmt.Errorf("unknown flag: %s", args[i])
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	// Secrets stay out of the printout.
	cfg.FusekiPassword.Value = mask(cfg.FusekiPassword.Value)
	cfg.Neo4jPassword.Value = mask(cfg.Neo4jPassword.Value)
	return printJSON(cfg)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func runServeMCP(args []string) error {
	var opts commonOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return err
		} else if ok {
			continue
		}
		return fmt.Errorf("unknown flag: %s", args[i])
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcp.NewServer(mcp.ServerConfig{
		Store:               s,
		Version:             version,
		ConfidenceThreshold: cfg.Confidence(),
	})
	return server.ServeStdio(srv)
}
