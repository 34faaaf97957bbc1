package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/devkg/devkg/internal/pipeline"
	"github.com/devkg/devkg/internal/sink"
)

type exportOpts struct {
	commonOpts
	out    string // turtle output path; "" = stdout
	fuseki bool
	neo4j  bool
}

func parseExportFlags(args []string) (exportOpts, error) {
	var opts exportOpts
	for i := 0; i < len(args); i++ {
		if ok, err := opts.takeCommon(args, &i); err != nil {
			return opts, err
		} else if ok {
			continue
		}
		switch {
		case args[i] == "--out" && i+1 < len(args):
			i++
			opts.out = args[i]
		case args[i] == "--format" && i+1 < len(args):
			i++
			if args[i] != "turtle" {
				return opts, fmt.Errorf("unsupported format %q (only turtle)", args[i])
			}
		case args[i] == "--fuseki":
			opts.fuseki = true
		case args[i] == "--neo4j":
			opts.neo4j = true
		case strings.HasPrefix(args[i], "-"):
			return opts, fmt.Errorf("unknown flag: %s", args[i])
		default:
			return opts, fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	return opts, nil
}

func runExport(args []string) error {
	opts, err := parseExportFlags(args)
	if err != nil {
		return err
	}
	cfg, err := opts.resolve()
	if err != nil {
		return err
	}

	ctx := context.Background()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	// Export reads the store only; no extractor, no realtime sinks.
	p := pipeline.New(s, nil, nil, nil, pipeline.Config{ConfidenceThreshold: cfg.Confidence()})
	export, err := p.BuildExport(ctx)
	if err != nil {
		return err
	}

	if opts.fuseki {
		if cfg.FusekiURL.Value == "" {
			return fmt.Errorf("--fuseki requires a Fuseki endpoint (fuseki.url in config or FUSEKI_URL)")
		}
		fs := sink.NewFusekiSink(sink.FusekiConfig{
			BaseURL:  cfg.FusekiURL.Value,
			Dataset:  cfg.FusekiDataset.Value,
			Username: cfg.FusekiUser.Value,
			Password: cfg.FusekiPassword.Value,
		})
		if err := fs.Ping(ctx); err != nil {
			return fmt.Errorf("fuseki unreachable: %w", err)
		}
		if err := fs.Emit(ctx, export); err != nil {
			return fmt.Errorf("pushing to fuseki: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Pushed %d triples to Fuseki\n", len(export.Triples))
	}

	if opts.neo4j {
		if cfg.Neo4jURI.Value == "" {
			return fmt.Errorf("--neo4j requires a Bolt endpoint (neo4j.uri in config or NEO4J_URI)")
		}
		ns, err := sink.NewNeo4jSink(ctx, sink.Neo4jConfig{
			URI:      cfg.Neo4jURI.Value,
			Username: cfg.Neo4jUser.Value,
			Password: cfg.Neo4jPassword.Value,
		})
		if err != nil {
			return fmt.Errorf("connecting to neo4j: %w", err)
		}
		defer ns.Close(ctx)
		if err := ns.Emit(ctx, export); err != nil {
			return fmt.Errorf("pushing to neo4j: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Pushed %d triples to Neo4j\n", len(export.Triples))
	}

	if opts.fuseki || opts.neo4j {
		if opts.out == "" {
			return nil
		}
	}

	w := os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", opts.out, err)
		}
		defer f.Close()
		w = f
	}
	if err := sink.WriteTurtle(w, export); err != nil {
		return fmt.Errorf("serializing turtle: %w", err)
	}
	if opts.out != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d triples, %d links to %s\n",
			len(export.Triples), len(export.Links), opts.out)
	}
	return nil
}
