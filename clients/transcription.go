package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocalia/anamnesis/core"
)

type transSeg struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type asrResp struct {
	Segments []transSeg `json:"segments"`
	Language string     `json:"language"`
}

// Transcribe submits an audio file to the transcription service and returns
// the text intervals it produced.
func (h *HTTP) Transcribe(ctx context.Context, baseURL, audioPath string) ([]core.TranscriptInterval, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", audioPath, err)
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/transcribe", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Expect", "100-continue")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		lb := io.LimitReader(resp.Body, maxErr)
		body, _ := io.ReadAll(lb)
		return nil, fmt.Errorf("transcribe %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out asrResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("transcribe decode: %w", err)
	}

	intervals := make([]core.TranscriptInterval, len(out.Segments))
	for i, seg := range out.Segments {
		intervals[i] = core.TranscriptInterval{
			StartTime: seg.Start,
			EndTime:   seg.End,
			Text:      seg.Text,
		}
	}
	return intervals, nil
}
