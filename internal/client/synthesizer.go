package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/speechrelay/api/internal/audio"
	"github.com/speechrelay/api/internal/speech"
)

// SynthesisClient is one language's handle onto the TTS model server. The
// server returns raw samples plus the attention alignment and phone
// symbols; the word-timing math runs on our side.
type SynthesisClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

func NewSynthesisClient(baseURL, language string) *SynthesisClient {
	return &SynthesisClient{
		baseURL:  baseURL,
		language: language,
		httpClient: &http.Client{
			Timeout: providerTimeout,
		},
	}
}

type synthesizeRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed"`
}

type synthesizeResponse struct {
	Audio      string      `json:"audio"`
	SampleRate int         `json:"sample_rate"`
	Alignment  [][]float64 `json:"alignment"`
	Phones     []string    `json:"phones"`
}

func (c *SynthesisClient) Synthesize(ctx context.Context, text string, speed float64) (speech.SegmentSynthesis, error) {
	reqBody, err := json.Marshal(synthesizeRequest{Text: text, Language: c.language, Speed: speed})
	if err != nil {
		return speech.SegmentSynthesis{}, err
	}

	var resp synthesizeResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/synthesize", reqBody, &resp); err != nil {
		return speech.SegmentSynthesis{}, err
	}

	pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return speech.SegmentSynthesis{}, fmt.Errorf("decode synthesized audio: %w", err)
	}
	samples, err := audio.DecodePCM16(pcm)
	if err != nil {
		return speech.SegmentSynthesis{}, err
	}

	return speech.SegmentSynthesis{
		Samples:    samples,
		SampleRate: resp.SampleRate,
		Alignment:  resp.Alignment,
		Phones:     resp.Phones,
	}, nil
}

// Warmup asks the server to load this language's model. Called once at
// startup; failure there is fatal rather than deferred to the first request.
func (c *SynthesisClient) Warmup(ctx context.Context) error {
	reqBody, err := json.Marshal(map[string]string{"language": c.language})
	if err != nil {
		return err
	}
	var resp struct {
		Loaded bool `json:"loaded"`
	}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/models/load", reqBody, &resp); err != nil {
		return fmt.Errorf("warm up %s synthesizer: %w", c.language, err)
	}
	if !resp.Loaded {
		return fmt.Errorf("warm up %s synthesizer: model not loaded", c.language)
	}
	return nil
}

func errStatus(code int) error {
	return fmt.Errorf("model server returned status %d", code)
}
