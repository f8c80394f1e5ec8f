package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/vocalia/anamnesis/core"
)

func TestSetupLogger(t *testing.T) {
	runWithLevel := func(level string) error {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
		return app.Run([]string{"test", "--log-level", level})
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, runWithLevel(level))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, level := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, runWithLevel(level))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := runWithLevel("verbose")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestParseRoleMapping(t *testing.T) {
	t.Run("valid mappings", func(t *testing.T) {
		roles, err := parseRoleMapping([]string{
			"SPEAKER_00=clinician",
			"SPEAKER_01=patient",
		})
		require.NoError(t, err)
		assert.Equal(t, core.SpeakerRoleClinician, roles["SPEAKER_00"])
		assert.Equal(t, core.SpeakerRolePatient, roles["SPEAKER_01"])
	})

	t.Run("empty input yields empty mapping", func(t *testing.T) {
		roles, err := parseRoleMapping(nil)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("missing separator fails", func(t *testing.T) {
		_, err := parseRoleMapping([]string{"SPEAKER_00"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LABEL=role")
	})

	t.Run("unknown role fails", func(t *testing.T) {
		_, err := parseRoleMapping([]string{"SPEAKER_00=nurse"})
		assert.Error(t, err)
	})
}

func TestLoadJudgments(t *testing.T) {
	writeFile := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "judgments.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("parses judgments with defaults", func(t *testing.T) {
		path := writeFile(t, `[
			{
				"query_id": "q1",
				"query": {"text": "headache onset", "speaker": "patient"},
				"relevant_ids": [42, 7]
			}
		]`)

		judgments, err := loadJudgments(path)
		require.NoError(t, err)
		require.Len(t, judgments, 1)

		j := judgments[0]
		assert.Equal(t, "q1", j.QueryId)
		assert.Equal(t, "headache onset", j.Query.Text)
		assert.Equal(t, core.SpeakerFilterPatient, j.Query.Speaker)
		assert.Equal(t, core.SearchHybrid, j.Query.Mode, "empty mode defaults to hybrid")
		assert.Equal(t, 10, j.Query.TopK, "missing top_k gets a default")
		assert.Equal(t, []core.ID{42, 7}, j.RelevantIds)
	})

	t.Run("explicit mode and top_k", func(t *testing.T) {
		path := writeFile(t, `[
			{
				"query_id": "q2",
				"query": {"text": "sleep", "mode": "lexical", "top_k": 3},
				"relevant_ids": []
			}
		]`)

		judgments, err := loadJudgments(path)
		require.NoError(t, err)
		assert.Equal(t, core.SearchLexical, judgments[0].Query.Mode)
		assert.Equal(t, 3, judgments[0].Query.TopK)
	})

	t.Run("invalid mode fails", func(t *testing.T) {
		path := writeFile(t, `[
			{"query_id": "q3", "query": {"text": "x", "mode": "fuzzy"}, "relevant_ids": []}
		]`)

		_, err := loadJudgments(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "q3")
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := loadJudgments(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestIngestCommandValidation(t *testing.T) {
	app := &cli.App{
		Name: "anamnesis",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Action: ingestCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{Name: "db", Required: true},
					&cli.StringFlag{Name: "interview", Required: true},
					&cli.StringFlag{Name: "audio"},
					&cli.StringFlag{Name: "diarizer-url"},
					&cli.StringFlag{Name: "transcriber-url"},
					&cli.StringFlag{Name: "diarization"},
					&cli.StringFlag{Name: "transcript"},
					&cli.StringSliceFlag{Name: "role"},
				),
			},
		},
	}

	t.Run("missing interval sources fails", func(t *testing.T) {
		err := app.Run([]string{"anamnesis", "ingest",
			"--db", t.TempDir(), "--interview", "intake-001"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--diarization")
	})

	t.Run("audio without service urls fails", func(t *testing.T) {
		err := app.Run([]string{"anamnesis", "ingest",
			"--db", t.TempDir(), "--interview", "intake-001",
			"--audio", "session.wav"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--diarizer-url")
	})
}
