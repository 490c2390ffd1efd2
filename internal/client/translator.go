package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// TranslationClient talks to the translation model server.
type TranslationClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTranslationClient(baseURL string) *TranslationClient {
	return &TranslationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: providerTimeout,
		},
	}
}

type translateRequest struct {
	Text     string `json:"text"`
	FromCode string `json:"from_code"`
	ToCode   string `json:"to_code"`
}

type translateResponse struct {
	Text string `json:"text"`
}

func (c *TranslationClient) Translate(ctx context.Context, text, fromCode, toCode string) (string, error) {
	reqBody, err := json.Marshal(translateRequest{Text: text, FromCode: fromCode, ToCode: toCode})
	if err != nil {
		return "", err
	}

	var resp translateResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/translate", reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Healthcheck verifies the translation server is reachable at startup.
func (c *TranslationClient) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errStatus(resp.StatusCode)
	}
	return nil
}
