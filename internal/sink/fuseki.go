package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FusekiConfig locates an Apache Jena Fuseki server.
type FusekiConfig struct {
	BaseURL  string // default http://localhost:3030
	Dataset  string // default devkg
	Username string // optional basic auth
	Password string
	Timeout  time.Duration // per request; default 60s
}

// FusekiSink uploads Turtle exports to a Fuseki dataset, creating the
// dataset (TDB2 persistent) on first use.
type FusekiSink struct {
	cfg  FusekiConfig
	http *http.Client
}

// NewFusekiSink builds a FusekiSink.
func NewFusekiSink(cfg FusekiConfig) *FusekiSink {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3030"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Dataset == "" {
		cfg.Dataset = "devkg"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &FusekiSink{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (s *FusekiSink) Name() string {
	return "fuseki/" + s.cfg.Dataset
}

// Ping checks that the server is up.
func (s *FusekiSink) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.cfg.BaseURL+"/$/ping", nil)
	if err != nil {
		return err
	}
	s.auth(req)
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("fuseki unreachable at %s: %w", s.cfg.BaseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fuseki ping: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Emit serializes the export as Turtle and POSTs it to the dataset's graph
// store endpoint. Graph-store semantics make the upload idempotent for
// identical content.
func (s *FusekiSink) Emit(ctx context.Context, export Export) error {
	if err := s.ensureDataset(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteTurtle(&buf, export); err != nil {
		return fmt.Errorf("serializing export: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/%s/data", s.cfg.BaseURL, s.cfg.Dataset), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/turtle")
	s.auth(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("uploading to fuseki: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fuseki upload: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// ensureDataset creates the dataset if it does not exist yet.
func (s *FusekiSink) ensureDataset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/$/datasets/%s", s.cfg.BaseURL, s.cfg.Dataset), nil)
	if err != nil {
		return err
	}
	s.auth(req)
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("checking fuseki dataset: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	form := url.Values{}
	form.Set("dbName", s.cfg.Dataset)
	form.Set("dbType", "tdb2")
	req, err = http.NewRequestWithContext(ctx, "POST",
		s.cfg.BaseURL+"/$/datasets", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.auth(req)

	resp, err = s.http.Do(req)
	if err != nil {
		return fmt.Errorf("creating fuseki dataset: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("creating fuseki dataset %q: HTTP %d", s.cfg.Dataset, resp.StatusCode)
	}
	return nil
}

func (s *FusekiSink) auth(req *http.Request) {
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}
}
