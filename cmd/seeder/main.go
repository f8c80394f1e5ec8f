package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/vocalia/anamnesis"
	"github.com/vocalia/anamnesis/ai/mock"
	"github.com/vocalia/anamnesis/core"
)

// interviewScript is a scripted interview used to seed a demo store. The
// diarization and transcript tracks are kept separate so the seeder walks the
// same reconciliation path as real ingestion.
type interviewScript struct {
	id          string
	diarization []core.DiarizationInterval
	transcript  []core.TranscriptInterval
	roles       core.RoleMapping
}

var scripts = []interviewScript{
	{
		id: "intake-001",
		diarization: []core.DiarizationInterval{
			{StartTime: 0, EndTime: 6, SpeakerLabel: "SPEAKER_00", Confidence: 0.95},
			{StartTime: 6, EndTime: 14, SpeakerLabel: "SPEAKER_01", Confidence: 0.91},
			{StartTime: 14, EndTime: 19, SpeakerLabel: "SPEAKER_00", Confidence: 0.93},
			{StartTime: 19, EndTime: 30, SpeakerLabel: "SPEAKER_01", Confidence: 0.88},
			{StartTime: 30, EndTime: 36, SpeakerLabel: "SPEAKER_00", Confidence: 0.94},
			{StartTime: 36, EndTime: 47, SpeakerLabel: "SPEAKER_01", Confidence: 0.9},
			{StartTime: 47, EndTime: 52, SpeakerLabel: "SPEAKER_00", Confidence: 0.92},
			{StartTime: 52, EndTime: 63, SpeakerLabel: "SPEAKER_01", Confidence: 0.89},
		},
		transcript: []core.TranscriptInterval{
			{StartTime: 0.2, EndTime: 5.8, Text: "What brings you in today?"},
			{StartTime: 6.1, EndTime: 13.7, Text: "I've been getting headaches almost every afternoon for the past three weeks."},
			{StartTime: 14.2, EndTime: 18.9, Text: "Where do you usually feel the pain?"},
			{StartTime: 19.3, EndTime: 29.5, Text: "Mostly behind my right eye, and sometimes it spreads to my temple."},
			{StartTime: 30.4, EndTime: 35.6, Text: "How has your sleep been during this period?"},
			{StartTime: 36.2, EndTime: 46.8, Text: "Not great. I wake up around four in the morning and can't fall back asleep."},
			{StartTime: 47.3, EndTime: 51.9, Text: "Are you taking anything for the pain?"},
			{StartTime: 52.4, EndTime: 62.7, Text: "Just ibuprofen, but it barely helps anymore."},
		},
		roles: core.RoleMapping{
			"SPEAKER_00": core.SpeakerRoleClinician,
			"SPEAKER_01": core.SpeakerRolePatient,
		},
	},
	{
		id: "followup-002",
		diarization: []core.DiarizationInterval{
			{StartTime: 0, EndTime: 7, SpeakerLabel: "SPEAKER_00", Confidence: 0.96},
			{StartTime: 7, EndTime: 18, SpeakerLabel: "SPEAKER_01", Confidence: 0.9},
			{StartTime: 18, EndTime: 24, SpeakerLabel: "SPEAKER_00", Confidence: 0.94},
			{StartTime: 24, EndTime: 37, SpeakerLabel: "SPEAKER_01", Confidence: 0.87},
			{StartTime: 37, EndTime: 43, SpeakerLabel: "SPEAKER_00", Confidence: 0.95},
			{StartTime: 43, EndTime: 55, SpeakerLabel: "SPEAKER_01", Confidence: 0.91},
		},
		transcript: []core.TranscriptInterval{
			{StartTime: 0.3, EndTime: 6.6, Text: "How have the headaches been since we adjusted the medication?"},
			{StartTime: 7.2, EndTime: 17.5, Text: "Better, honestly. I've only had two this week and they were much milder."},
			{StartTime: 18.4, EndTime: 23.8, Text: "Any side effects, nausea, dizziness?"},
			{StartTime: 24.3, EndTime: 36.4, Text: "A little drowsy in the mornings, but it wears off after breakfast."},
			{StartTime: 37.2, EndTime: 42.6, Text: "And the early waking, is that still happening?"},
			{StartTime: 43.1, EndTime: 54.3, Text: "Maybe once or twice a week now instead of every night."},
		},
		roles: core.RoleMapping{
			"SPEAKER_00": core.SpeakerRoleClinician,
			"SPEAKER_01": core.SpeakerRolePatient,
		},
	},
}

var (
	dbPath  = flag.String("db", "./interviews_db", "database directory")
	useMock = flag.Bool("mock", false, "use deterministic in-process embeddings instead of the embedding service")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	var opts []anamnesis.DatabaseOption
	if *useMock {
		opts = append(opts, anamnesis.WithAIProvider(mock.NewMockProvider()))
	}

	db, err := anamnesis.NewDatabase(*dbPath, opts...)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	reconciler, err := db.NewReconciler()
	if err != nil {
		panic(err)
	}

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer pipeline.Release()

	ctx := context.Background()

	for _, script := range scripts {
		utterances, err := reconciler.Reconcile(script.id, script.diarization, script.transcript, script.roles)
		if err != nil {
			panic(err)
		}

		result, err := pipeline.Ingest(ctx, utterances)
		if err != nil {
			panic(err)
		}

		slog.Info("seeded interview",
			"interview", script.id,
			"inserted", result.Inserted,
			"updated", result.Updated,
			"rejected", len(result.Rejected))
	}
}
