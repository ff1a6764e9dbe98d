// Command taskload populates the tactical task catalog from a field
// manual PDF: each page's text goes through the extraction prompt and
// the returned task definitions are written to Redis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/opmark/internal/analyze"
	"github.com/dgallion1/opmark/internal/catalog"
	"github.com/dgallion1/opmark/internal/config"
	"github.com/dgallion1/opmark/internal/genai"
	"github.com/dgallion1/opmark/internal/highlight"
	"github.com/dgallion1/opmark/internal/parser"
	"github.com/dgallion1/opmark/internal/pipeline"
)

func main() {
	var (
		pdfPath   = flag.String("pdf", "", "path to the field manual PDF (required)")
		source    = flag.String("source", "FM 3-90", "source reference recorded on each task")
		firstPage = flag.Int("first", 1, "first page to process (1-based)")
		lastPage  = flag.Int("last", 0, "last page to process (0 = end of document)")
		dryRun    = flag.Bool("dry-run", false, "extract and print tasks without writing to Redis")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "usage: taskload -pdf <manual.pdf> [-source REF] [-first N] [-last N] [-dry-run]")
		os.Exit(2)
	}

	cfg := config.Load()
	if cfg.GoogleAPIKey == "" {
		log.Error("GOOGLE_API_KEY is required")
		os.Exit(1)
	}

	f, err := os.Open(*pdfPath)
	if err != nil {
		log.Error("open pdf", "error", err)
		os.Exit(1)
	}
	doc, err := (&parser.PDFParser{}).Parse(f, *pdfPath)
	f.Close()
	if err != nil {
		log.Error("parse pdf", "error", err)
		os.Exit(1)
	}
	log.Info("manual parsed", "pages", len(doc.Pages))

	var tasks catalog.Store
	if !*dryRun {
		store, err := catalog.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Error("task catalog unavailable", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		tasks = store
	}

	gem := genai.NewClient(cfg.GoogleAPIKey, cfg.GeminiModel)
	defer gem.Close()

	ctx := context.Background()
	last := *lastPage
	if last <= 0 || last > len(doc.Pages) {
		last = len(doc.Pages)
	}

	total := 0
	for i := *firstPage; i <= last; i++ {
		pageText := doc.Pages[i-1]
		if pageText == "" {
			continue
		}
		label := fmt.Sprintf("%d", i)
		extracted, err := extractPage(ctx, gem, label, pageText, log)
		if err != nil {
			log.Error("page extraction failed", "page", i, "error", err)
			continue
		}
		for _, detail := range extracted {
			detail.SourceReference = *source
			if err := catalog.Validate(detail); err != nil {
				log.Warn("skipping malformed task", "page", i, "name", detail.Name, "error", err)
				continue
			}
			if *dryRun {
				out, _ := json.Marshal(detail)
				fmt.Println(string(out))
			} else if err := tasks.Put(ctx, detail); err != nil {
				log.Error("store task", "name", detail.Name, "error", err)
				continue
			}
			total++
		}
	}
	log.Info("catalog load complete", "tasks", total)
}

// extractPage runs the extraction prompt for one page, retrying
// transient model failures.
func extractPage(ctx context.Context, gem *genai.Client, pageLabel, pageText string, log *slog.Logger) ([]highlight.TaskDetail, error) {
	prompt := analyze.BuildExtractionPrompt(pageLabel, pageText)

	var raw string
	var err error
	for attempt := range pipeline.MaxRetries {
		raw, err = gem.GenerateText(ctx, prompt)
		if err == nil || !pipeline.IsRetryable(err) {
			break
		}
		log.Warn("retryable extraction error", "page", pageLabel, "attempt", attempt, "error", err)
		time.Sleep(pipeline.Backoff(attempt))
	}
	if err != nil {
		return nil, err
	}

	var details []highlight.TaskDetail
	if err := json.Unmarshal([]byte(genai.StripCodeFence(raw)), &details); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	return details, nil
}
