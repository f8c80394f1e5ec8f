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

type spkSeg struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence"`
}

type diarResp struct {
	Segments    []spkSeg `json:"segments"`
	NumSpeakers int      `json:"num_speakers"`
}

// Diarize submits an audio file to the diarization service and returns the
// speaker-labeled intervals it found.
func (h *HTTP) Diarize(ctx context.Context, baseURL, audioPath string) ([]core.DiarizationInterval, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/diarize", &b)
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
		return nil, fmt.Errorf("diarize %s: %s",
			resp.Status, strings.TrimSpace(string(body)))
	}
	var out diarResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}

	intervals := make([]core.DiarizationInterval, len(out.Segments))
	for i, seg := range out.Segments {
		confidence := seg.Confidence
		if confidence == 0 {
			confidence = -1 // service omits it
		}
		intervals[i] = core.DiarizationInterval{
			StartTime:    seg.Start,
			EndTime:      seg.End,
			SpeakerLabel: seg.Speaker,
			Confidence:   confidence,
		}
	}
	return intervals, nil
}
