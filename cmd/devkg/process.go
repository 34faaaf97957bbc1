package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/devkg/devkg/internal/config"
	"github.com/devkg/devkg/internal/logging"
	"github.com/devkg/devkg/internal/pipeline"
	"github.com/devkg/devkg/internal/queue"
	"github.com/devkg/devkg/internal/store"
)

type processOpts struct {
	commonOpts
	transcript string
	sessionID  string
}

func parseProcessFlags(args []string) (processOpts, error) {
	var opts processOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return opts, err
		} else if ok {
			continue
		}
		switch {
		case args[i] == "--transcript" && i+1 < len(args):
			i++
			opts.transcript = args[i]
		case args[i] == "--session-id" && i+1 < len(args):
			i++
			opts.sessionID = args[i]
		case strings.HasPrefix(args[i], "-"):
			return opts, fmt.Errorf("unknown flag: %s", args[i])
		case opts.transcript == "":
			opts.transcript = args[i]
		default:
			return opts, fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	if opts.transcript == "" {
		return opts, fmt.Errorf("usage: devkg process --transcript <path> [--session-id <id>]")
	}
	return opts, nil
}

func runProcess(args []string) error {
	opts, err := parseProcessFlags(args)
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

	report, err := p.ProcessTranscript(ctx, opts.sessionID, opts.transcript)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return printJSON(report)
	}
	if report.Skipped {
		fmt.Printf("Skipped: %s\n", report.Reason)
		return nil
	}
	fmt.Printf("Session %s: %d triples", report.SessionID, report.Triples)
	if report.CacheHit {
		fmt.Print(" (cached)")
	}
	if report.Degraded {
		fmt.Print(" (degraded)")
	}
	fmt.Println()
	return nil
}

// buildPipeline assembles the realtime pipeline: store, extractor,
// aliases, and any configured best-effort sinks. Callers own the returned
// store.
func buildPipeline(ctx context.Context, cfg config.ResolvedConfig) (*pipeline.Pipeline, *store.Store, error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	aliases, err := loadAliases(cfg)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	p := pipeline.New(s, newExtractor(provider, s), aliases, realtimeSinks(cfg), pipeline.Config{
		ConfidenceThreshold: cfg.Confidence(),
	})
	return p, s, nil
}

func runWatch(args []string) error {
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

	ctx := context.Background()
	p, s, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	root := store.ExpandPath(cfg.ProjectsDir.Value)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// fsnotify does not recurse: watch the root and every project
	// directory under it, picking up new directories as they appear.
	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := watcher.Add(filepath.Join(root, e.Name())); err != nil {
				logging.Warn("watch", "cannot watch %s: %v", e.Name(), err)
			}
		}
	}

	fmt.Printf("Watching %s for transcript updates (Ctrl-C to stop)\n", root)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := watcher.Add(event.Name); err != nil {
					logging.Warn("watch", "cannot watch %s: %v", event.Name, err)
				}
				continue
			}
			if filepath.Ext(event.Name) != ".jsonl" {
				continue
			}
			// The message watermark makes repeated fires for the same
			// turn cheap no-ops, so no debouncing is needed.
			report, err := p.ProcessTranscript(ctx, "", event.Name)
			if err != nil {
				logging.Warn("watch", "%s: %v", event.Name, err)
				continue
			}
			if !report.Skipped {
				fmt.Printf("%s: %d triples\n", filepath.Base(event.Name), report.Triples)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch", "watcher: %v", err)
		}
	}
}

func runConsume(args []string) error {
	var opts commonOpts
	queueName := ""
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return err
		} else if ok {
			continue
		}
		if args[i] == "--queue" && i+1 < len(args) {
			i++
			queueName = args[i]
			continue
		}
		return fmt.Errorf("unknown flag: %s", args[i])
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

	if queueName == "" {
		queueName = cfg.QueueName.Value
	}
	consumer, err := queue.Connect(queue.Config{
		URL:   cfg.QueueURL.Value,
		Queue: queueName,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	fmt.Println("Consuming pipeline jobs (Ctrl-C to stop)")
	return consumer.Consume(ctx, func(ctx context.Context, job queue.Job) error {
		report, err := p.ProcessTranscript(ctx, job.SessionID, job.TranscriptPath)
		if err != nil {
			return err
		}
		logging.Info("consume", "session=%s triples=%d skipped=%v", report.SessionID, report.Triples, report.Skipped)
		return nil
	})
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
