package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// TranslatorClient talks to a LibreTranslate-shaped translation service.
type TranslatorClient struct {
	client *resty.Client
	apiKey string
}

// TranslatorClientConfig holds configuration for the translator client.
type TranslatorClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewTranslatorClient creates a translation service client.
func NewTranslatorClient(cfg *TranslatorClientConfig) *TranslatorClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(30 * time.Second)
	}
	return &TranslatorClient{client: client, apiKey: cfg.APIKey}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Translate translates text between the given language codes. A non-2xx
// status or an empty result body is a translation failure.
func (c *TranslatorClient) Translate(ctx context.Context, text, from, to string) (string, error) {
	var result translateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(translateRequest{Q: text, Source: from, Target: to, APIKey: c.apiKey}).
		SetResult(&result).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("failed to call translation API: %w", err)
	}
	if err := checkStatus("translation service", resp); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("translation API error: %s", result.Error)
	}
	if result.TranslatedText == "" {
		return "", fmt.Errorf("translation API returned empty result (status %d)", resp.StatusCode())
	}
	return result.TranslatedText, nil
}
