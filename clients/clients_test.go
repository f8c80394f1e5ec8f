package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF fake audio"), 0o600))
	return path
}

func TestDiarize(t *testing.T) {
	audio := writeTestAudio(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/diarize", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "session.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"segments": [
				{"start": 0, "end": 5, "speaker": "SPEAKER_00", "confidence": 0.92},
				{"start": 5, "end": 10, "speaker": "SPEAKER_01"}
			],
			"num_speakers": 2
		}`))
	}))
	defer server.Close()

	intervals, err := NewHTTP().Diarize(context.Background(), server.URL, audio)
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	assert.Equal(t, "SPEAKER_00", intervals[0].SpeakerLabel)
	assert.Equal(t, 0.92, intervals[0].Confidence)
	assert.Equal(t, 5.0, intervals[1].StartTime)
	assert.Equal(t, -1.0, intervals[1].Confidence, "missing confidence maps to unset")
}

func TestTranscribe(t *testing.T) {
	audio := writeTestAudio(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transcribe", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"segments": [
				{"start": 0, "end": 4.8, "text": "Hello"},
				{"start": 5.1, "end": 9.9, "text": "I have a headache"}
			],
			"language": "en"
		}`))
	}))
	defer server.Close()

	intervals, err := NewHTTP().Transcribe(context.Background(), server.URL, audio)
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	assert.Equal(t, "Hello", intervals[0].Text)
	assert.Equal(t, 4.8, intervals[0].EndTime)
	assert.Equal(t, "I have a headache", intervals[1].Text)
}

func TestClientErrors(t *testing.T) {
	audio := writeTestAudio(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTP()

	t.Run("diarize service failure", func(t *testing.T) {
		_, err := client.Diarize(context.Background(), server.URL, audio)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("transcribe service failure", func(t *testing.T) {
		_, err := client.Transcribe(context.Background(), server.URL, audio)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not loaded")
	})

	t.Run("missing audio file", func(t *testing.T) {
		_, err := client.Diarize(context.Background(), server.URL, filepath.Join(t.TempDir(), "missing.wav"))
		assert.Error(t, err)
	})
}
