// Package client holds the HTTP clients for the external model servers:
// whisper transcription, translation, and per-language TTS. Each is a thin
// JSON POST wrapper with a generous timeout; the model calls themselves are
// CPU/accelerator-bound and slow.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/speechrelay/api/internal/audio"
)

const providerTimeout = 120 * time.Second

// TranscriptionClient talks to the whisper model server.
type TranscriptionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTranscriptionClient(baseURL string) *TranscriptionClient {
	return &TranscriptionClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: providerTimeout,
		},
	}
}

type transcribeRequest struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe ships normalized samples as base64 16-bit PCM and returns the
// recognized text.
func (c *TranscriptionClient) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	reqBody, err := json.Marshal(transcribeRequest{
		Audio:      base64.StdEncoding.EncodeToString(audio.EncodePCM16(samples)),
		SampleRate: 16000,
		Language:   language,
	})
	if err != nil {
		return "", err
	}

	var resp transcribeResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/transcribe", reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// postJSON issues a JSON POST and decodes the response, turning non-200
// statuses into errors carrying the server's message.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
