// Copyright 2026 Vocalia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vocalia/anamnesis"
	"github.com/vocalia/anamnesis/ai"
	"github.com/vocalia/anamnesis/ai/openai"
	"github.com/vocalia/anamnesis/clients"
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/evaluate"
	"github.com/vocalia/anamnesis/reembed"
	"github.com/vocalia/anamnesis/rerank"
	"github.com/vocalia/anamnesis/storage"
	"github.com/vocalia/anamnesis/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "anamnesis",
		Usage: "Speaker-aware search over clinical interview transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Reconcile an interview and store its utterances",
				Action: ingestCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "interview",
						Usage:    "Interview identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "audio",
						Usage: "Audio file to diarize and transcribe via the processing services",
					},
					&cli.StringFlag{
						Name:  "diarizer-url",
						Usage: "Diarization service base URL (with --audio)",
					},
					&cli.StringFlag{
						Name:  "transcriber-url",
						Usage: "Transcription service base URL (with --audio)",
					},
					&cli.StringFlag{
						Name:  "diarization",
						Usage: "JSON file of diarization intervals (without --audio)",
					},
					&cli.StringFlag{
						Name:  "transcript",
						Usage: "JSON file of transcript intervals (without --audio)",
					},
					&cli.StringSliceFlag{
						Name:  "role",
						Usage: "Speaker label to role mapping, e.g. SPEAKER_00=clinician",
					},
				),
			},
			{
				Name:   "search",
				Usage:  "Query the utterance store",
				Action: searchCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results to return",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (semantic, lexical, hybrid)",
						Value: "hybrid",
					},
					&cli.StringFlag{
						Name:  "speaker",
						Usage: "Speaker filter (all, patient, clinician)",
						Value: "all",
					},
					&cli.StringSliceFlag{
						Name:  "interview",
						Usage: "Restrict to the given interview ids",
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Re-rank results with the relevance scorer",
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Generate a natural-language summary of the results",
					},
				),
			},
			{
				Name:   "evaluate",
				Usage:  "Score retrieval quality against a judgment file",
				Action: evaluateCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "judgments",
						Aliases:  []string{"j"},
						Usage:    "JSON file of relevance judgments",
						Required: true,
					},
					&cli.IntSliceFlag{
						Name:  "k",
						Usage: "Cutoffs for P@K, R@K, and NDCG@K",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for stored utterances",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "interview",
						Usage: "Restrict to the given interview ids",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of utterances to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N utterances",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print store contents summary",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete all utterances of an interview",
				Action: deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "interview",
						Usage:    "Interview identifier",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-host",
			Usage: "Chat service host URL for scoring and explanation",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name for scoring and explanation",
			Value: "qwen2.5:3b",
		},
		&cli.DurationFlag{
			Name:  "ai-timeout",
			Usage: "Timeout for AI collaborator calls",
			Value: 5 * time.Second,
		},
	}
}

func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatHost(c.String("chat-host")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithTimeout(c.Duration("ai-timeout")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*anamnesis.Database, error) {
	cfg, err := aiConfigFromFlags(c)
	if err != nil {
		return nil, err
	}
	db, err := anamnesis.NewDatabase(c.String("db"), anamnesis.WithAIConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Wire shapes for the ingest input files. They mirror what the diarization
// and transcription services emit.
type diarizationEntry struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence"`
}

type transcriptEntry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func parseRoleMapping(pairs []string) (core.RoleMapping, error) {
	roles := make(core.RoleMapping, len(pairs))
	for _, pair := range pairs {
		label, roleName, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid role mapping %q: expected LABEL=role", pair)
		}
		role, err := core.ParseSpeakerRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("invalid role mapping %q: %w", pair, err)
		}
		roles[label] = role
	}
	return roles, nil
}

func loadIntervals(c *cli.Context) ([]core.DiarizationInterval, []core.TranscriptInterval, error) {
	ctx := c.Context

	if audio := c.String("audio"); audio != "" {
		diarizerURL := c.String("diarizer-url")
		transcriberURL := c.String("transcriber-url")
		if diarizerURL == "" || transcriberURL == "" {
			return nil, nil, fmt.Errorf("--audio requires --diarizer-url and --transcriber-url")
		}
		client := clients.NewHTTP()
		diarization, err := client.Diarize(ctx, diarizerURL, audio)
		if err != nil {
			return nil, nil, fmt.Errorf("diarization failed: %w", err)
		}
		transcript, err := client.Transcribe(ctx, transcriberURL, audio)
		if err != nil {
			return nil, nil, fmt.Errorf("transcription failed: %w", err)
		}
		return diarization, transcript, nil
	}

	diarPath := c.String("diarization")
	transPath := c.String("transcript")
	if diarPath == "" || transPath == "" {
		return nil, nil, fmt.Errorf("either --audio or both --diarization and --transcript are required")
	}

	var diarEntries []diarizationEntry
	if err := readJSONFile(diarPath, &diarEntries); err != nil {
		return nil, nil, err
	}
	var transEntries []transcriptEntry
	if err := readJSONFile(transPath, &transEntries); err != nil {
		return nil, nil, err
	}

	diarization := make([]core.DiarizationInterval, len(diarEntries))
	for i, e := range diarEntries {
		confidence := e.Confidence
		if confidence == 0 {
			confidence = -1
		}
		diarization[i] = core.DiarizationInterval{
			StartTime:    e.Start,
			EndTime:      e.End,
			SpeakerLabel: e.Speaker,
			Confidence:   confidence,
		}
	}
	transcript := make([]core.TranscriptInterval, len(transEntries))
	for i, e := range transEntries {
		transcript[i] = core.TranscriptInterval{
			StartTime: e.Start,
			EndTime:   e.End,
			Text:      e.Text,
		}
	}
	return diarization, transcript, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context

	diarization, transcript, err := loadIntervals(c)
	if err != nil {
		return err
	}
	roles, err := parseRoleMapping(c.StringSlice("role"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reconciler, err := db.NewReconciler()
	if err != nil {
		return err
	}

	utterances, err := reconciler.Reconcile(c.String("interview"), diarization, transcript, roles)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	result, err := pipeline.Ingest(ctx, utterances)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Interview: %s\n", c.String("interview"))
	fmt.Fprintf(os.Stderr, "Utterances: %d reconciled, %d inserted, %d updated, %d rejected\n",
		len(utterances), result.Inserted, result.Updated, len(result.Rejected))
	for _, rejection := range result.Rejected {
		fmt.Fprintf(os.Stderr, "  rejected [%g-%g]: %s\n",
			rejection.Utterance.StartTime, rejection.Utterance.EndTime, rejection.Reason)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context

	if c.NArg() == 0 {
		return fmt.Errorf("query text is required")
	}
	mode, err := core.ParseSearchMode(c.String("mode"))
	if err != nil {
		return fmt.Errorf("invalid mode %q", c.String("mode"))
	}
	speaker, err := core.ParseSpeakerFilter(c.String("speaker"))
	if err != nil {
		return fmt.Errorf("invalid speaker filter %q", c.String("speaker"))
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	query := &core.Query{
		Text:         strings.Join(c.Args().Slice(), " "),
		InterviewIds: c.StringSlice("interview"),
		Speaker:      speaker,
		TopK:         c.Int("top-k"),
		Mode:         mode,
		Rerank:       c.Bool("rerank"),
	}

	results, err := searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if query.Rerank {
		reranker, err := db.NewReranker(rerank.WithTimeout(c.Duration("ai-timeout")))
		if err != nil {
			return err
		}
		results = reranker.Rerank(ctx, query, results)
		if len(results) > 0 && results[0].Degraded {
			fmt.Fprintln(os.Stderr, "warning: re-ranking degraded, showing original order")
		}
	}

	fmt.Printf("Found %d hits\n", len(results))
	for _, hit := range results {
		fmt.Printf("%d: [%s %s %.1f-%.1fs] %q (%.3f)\n",
			hit.Rank, hit.Utterance.InterviewId, hit.Utterance.Speaker,
			hit.Utterance.StartTime, hit.Utterance.EndTime,
			hit.Utterance.Text, hit.Score)
	}

	if c.Bool("explain") && len(results) > 0 {
		passages := make([]string, len(results))
		for i, hit := range results {
			passages[i] = hit.Utterance.Text
		}
		explanation, err := db.AIProvider().Explainer().Explain(ctx, query.Text, passages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: explanation failed: %v\n", err)
		} else {
			fmt.Printf("\n%s\n", explanation)
		}
	}
	return nil
}

// judgmentEntry is the wire shape of one relevance judgment.
type judgmentEntry struct {
	QueryId string `json:"query_id"`
	Query   struct {
		Text         string   `json:"text"`
		InterviewIds []string `json:"interview_ids"`
		Speaker      string   `json:"speaker"`
		TopK         int      `json:"top_k"`
		Mode         string   `json:"mode"`
	} `json:"query"`
	RelevantIds []uint64 `json:"relevant_ids"`
}

func loadJudgments(path string) ([]core.RelevanceJudgment, error) {
	var entries []judgmentEntry
	if err := readJSONFile(path, &entries); err != nil {
		return nil, err
	}

	judgments := make([]core.RelevanceJudgment, len(entries))
	for i, e := range entries {
		mode, err := core.ParseSearchMode(e.Query.Mode)
		if err != nil {
			return nil, fmt.Errorf("judgment %q: invalid mode %q", e.QueryId, e.Query.Mode)
		}
		speaker, err := core.ParseSpeakerFilter(e.Query.Speaker)
		if err != nil {
			return nil, fmt.Errorf("judgment %q: invalid speaker %q", e.QueryId, e.Query.Speaker)
		}
		topK := e.Query.TopK
		if topK == 0 {
			topK = 10
		}
		relevant := make([]core.ID, len(e.RelevantIds))
		for j, id := range e.RelevantIds {
			relevant[j] = core.ID(id)
		}
		judgments[i] = core.RelevanceJudgment{
			QueryId: e.QueryId,
			Query: core.Query{
				Text:         e.Query.Text,
				InterviewIds: e.Query.InterviewIds,
				Speaker:      speaker,
				TopK:         topK,
				Mode:         mode,
			},
			RelevantIds: relevant,
		}
	}
	return judgments, nil
}

func evaluateCommand(c *cli.Context) error {
	ctx := c.Context

	judgments, err := loadJudgments(c.String("judgments"))
	if err != nil {
		return err
	}
	kValues := c.IntSlice("k")
	if len(kValues) == 0 {
		kValues = evaluate.DefaultKValues
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	engine, err := db.NewEvaluationEngine()
	if err != nil {
		return err
	}
	defer engine.Release()

	report, err := engine.Evaluate(ctx, judgments, func(ctx context.Context, query *core.Query) ([]*core.RankedResult, error) {
		return searcher.Search(ctx, query)
	}, kValues)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	printReport(report)
	return nil
}

func printReport(report *evaluate.Report) {
	printMetricSet("Overall", report.Overall, report.KValues)

	speakers := make([]core.SpeakerFilter, 0, len(report.BySpeaker))
	for speaker := range report.BySpeaker {
		speakers = append(speakers, speaker)
	}
	sort.Slice(speakers, func(i, j int) bool { return speakers[i] < speakers[j] })
	for _, speaker := range speakers {
		printMetricSet(speaker.String(), report.BySpeaker[speaker], report.KValues)
	}

	skipped := 0
	for _, q := range report.PerQuery {
		if q.Skipped {
			skipped++
		}
	}
	fmt.Printf("\nQueries: %d evaluated, %d skipped\n", report.Overall.Queries, skipped)
}

func printMetricSet(name string, metrics evaluate.MetricSet, kValues []int) {
	fmt.Printf("\n%s (%d queries)\n", name, metrics.Queries)
	fmt.Printf("  MAP: %.4f\n", metrics.MAP)
	for _, k := range kValues {
		fmt.Printf("  P@%-3d %.4f  R@%-3d %.4f  NDCG@%-3d %.4f\n",
			k, metrics.Precision[k], k, metrics.Recall[k], k, metrics.NDCG[k])
	}
}

func reembedCommand(c *cli.Context) error {
	ctx := c.Context

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewUtteranceRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Filter:         storage.Filter{InterviewIds: c.StringSlice("interview")},
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder, err := reembed.NewReembedder(repo, embedder, reembedConfig, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewUtteranceRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	stats, err := repo.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Interviews: %d\n", stats.Interviews)
	fmt.Printf("Utterances: %d\n", stats.Utterances)
	fmt.Printf("Embedded:   %d\n", stats.Embedded)
	return nil
}

func deleteCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewUtteranceRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	deleted, err := repo.DeleteInterview(c.Context, c.String("interview"))
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Deleted %d utterances from interview %s\n", deleted, c.String("interview"))
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
