package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/devkg/devkg/internal/ingest"
	"github.com/devkg/devkg/internal/logging"
	"github.com/devkg/devkg/internal/store"
)

// BackfillOpts controls a corpus backfill.
type BackfillOpts struct {
	Limit            int    // max session files; 0 = all
	Sort             string // "name", "newest", "oldest"
	Force            bool   // reprocess files with unchanged content
	IncludeSubagents bool
	DryRun           bool // discover and count, touch nothing
	// Workers bounds concurrent extractions within a file; default 4.
	// Safe because the cache is keyed per message and the store allows
	// concurrent writers (WAL + busy timeout).
	Workers int
	// Progress, when set, receives (done, total) after each file.
	Progress func(done, total int)
	// MinMessageChars guards backfill extraction; default 30. Lower than
	// the realtime guard: backfill sees every assistant turn, not just
	// final summaries.
	MinMessageChars int
}

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	RunID       string `json:"run_id"`
	DryRun      bool   `json:"dry_run"`
	Files       int    `json:"files"`
	Unchanged   int    `json:"unchanged"`
	Processed   int    `json:"processed"`
	Messages    int    `json:"messages"`
	CacheHits   int    `json:"cache_hits"`
	Triples     int    `json:"triples"`
	Degraded    int    `json:"degraded"`
	FileErrors  int    `json:"file_errors"`
	ErrorPaths  []string
}

// Backfill walks every discovered session transcript and extracts triples
// from all assistant messages. File watermarks keyed on content hashes
// skip transcripts that have not changed since the previous run; per-file
// failures are recorded and skipped rather than aborting the sweep.
func (p *Pipeline) Backfill(ctx context.Context, root string, opts BackfillOpts) (BackfillReport, error) {
	report := BackfillReport{RunID: uuid.NewString(), DryRun: opts.DryRun}

	if opts.MinMessageChars <= 0 {
		opts.MinMessageChars = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	paths, err := ingest.DiscoverSessions(root, ingest.DiscoverOpts{
		IncludeSubagents: opts.IncludeSubagents,
		Sort:             opts.Sort,
		Limit:            opts.Limit,
	})
	if err != nil {
		return report, err
	}
	report.Files = len(paths)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := p.backfillFile(ctx, path, opts, &report); err != nil {
			logging.Warn("backfill", "%s: %v", path, err)
			report.FileErrors++
			report.ErrorPaths = append(report.ErrorPaths, path)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
	}

	logging.Info("backfill", "files=%d processed=%d unchanged=%d triples=%d errors=%d",
		report.Files, report.Processed, report.Unchanged, report.Triples, report.FileErrors)
	return report, nil
}

func (p *Pipeline) backfillFile(ctx context.Context, path string, opts BackfillOpts, report *BackfillReport) error {
	fileHash, err := store.HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing transcript: %w", err)
	}

	if !opts.Force {
		unchanged, err := p.store.FileUnchanged(ctx, path, fileHash)
		if err != nil {
			return err
		}
		if unchanged {
			report.Unchanged++
			return nil
		}
	}

	if opts.DryRun {
		report.Processed++
		return nil
	}

	messages, err := ingest.ReadTranscript(path)
	if err != nil {
		return err
	}
	sessionID := ingest.SessionID(messages, path)

	var eligible []ingest.Message
	for _, msg := range messages {
		if !msg.IsAssistant() || len(msg.Text) < opts.MinMessageChars {
			continue
		}
		eligible = append(eligible, msg)
	}
	report.Messages += len(eligible)

	// Fan extraction out across the file's messages: the LLM call
	// dominates latency and every message is independent.
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, opts.Workers)
		firstErr error
	)
	for _, msg := range eligible {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(msg ingest.Message) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := p.extractor.Extract(ctx, msg.ID, msg.Text)
			if err == nil && len(res.Triples) > 0 {
				err = p.store.RecordTriples(ctx, msg.ID, sessionID, res.Triples)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if res.CacheHit {
				report.CacheHits++
			}
			if res.Degraded {
				report.Degraded++
			}
			report.Triples += len(res.Triples)
		}(msg)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.store.MarkFileProcessed(ctx, path, fileHash); err != nil {
		return err
	}
	report.Processed++
	return nil
}
