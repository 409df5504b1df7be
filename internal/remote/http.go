package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to the backend media-processing API over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given base URL. The timeout bounds
// every remote call; zero keeps the client's default of two minutes.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads media and returns the transcription result.
func (c *HTTPClient) Transcribe(ctx context.Context, media Media, languageHint string) (Transcription, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", media.Name)
	if err != nil {
		return Transcription{}, &Error{Stage: "transcribe", Message: "build upload request", Err: err}
	}
	if _, err := part.Write(media.Data); err != nil {
		return Transcription{}, &Error{Stage: "transcribe", Message: "build upload request", Err: err}
	}
	if languageHint != "" {
		if err := writer.WriteField("language", languageHint); err != nil {
			return Transcription{}, &Error{Stage: "transcribe", Message: "build upload request", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return Transcription{}, &Error{Stage: "transcribe", Message: "build upload request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/audio/transcribe", &body)
	if err != nil {
		return Transcription{}, &Error{Stage: "transcribe", Message: "build upload request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var payload struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := c.do(req, "transcribe", &payload); err != nil {
		return Transcription{}, err
	}

	return Transcription{Text: payload.Text, DetectedLanguage: payload.Language}, nil
}

// Translate converts text between two named languages.
func (c *HTTPClient) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	reqBody := map[string]string{
		"text":            text,
		"source_language": sourceLanguage,
		"target_language": targetLanguage,
	}

	req, err := c.jsonRequest(ctx, "/api/v1/audio/translate", reqBody)
	if err != nil {
		return "", &Error{Stage: "translate", Message: "build request", Err: err}
	}

	var payload struct {
		TranslatedText string `json:"translated_text"`
	}
	if err := c.do(req, "translate", &payload); err != nil {
		return "", err
	}
	return payload.TranslatedText, nil
}

// SynthesizeSpeech converts text into spoken audio and returns the raw
// audio buffer.
func (c *HTTPClient) SynthesizeSpeech(ctx context.Context, text, voice, model, instructions string) ([]byte, error) {
	reqBody := map[string]string{
		"text":  text,
		"voice": voice,
		"model": model,
	}
	if instructions != "" {
		reqBody["instructions"] = instructions
	}

	req, err := c.jsonRequest(ctx, "/api/v1/audio/tts", reqBody)
	if err != nil {
		return nil, &Error{Stage: "synthesize", Message: "build request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Stage: "synthesize", Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("synthesize", resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Stage: "synthesize", Message: "read audio response", Err: err}
	}
	return audio, nil
}

// CheckHealth queries backend readiness.
func (c *HTTPClient) CheckHealth(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{}, &Error{Stage: "health", Message: "build request", Err: err}
	}

	var payload struct {
		Status        string `json:"status"`
		APIConfigured bool   `json:"openai_api_configured"`
		Version       string `json:"version"`
	}
	if err := c.do(req, "health", &payload); err != nil {
		return Health{}, err
	}

	return Health{
		Status:            payload.Status,
		ServiceConfigured: payload.APIConfigured,
		Version:           payload.Version,
	}, nil
}

// jsonRequest builds a POST request with a JSON body.
func (c *HTTPClient) jsonRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes a request and decodes the JSON response into out.
func (c *HTTPClient) do(req *http.Request, stage string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Stage: stage, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(stage, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Stage: stage, Message: "decode response", Err: err}
	}
	return nil
}

// statusError converts a non-200 response into a stage-tagged error, using
// the API's detail message when present.
func (c *HTTPClient) statusError(stage string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var detail struct {
		Detail string `json:"detail"`
	}
	message := fmt.Sprintf("unexpected status %d", resp.StatusCode)
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		message = detail.Detail
	}

	return &Error{Stage: stage, Message: message}
}
