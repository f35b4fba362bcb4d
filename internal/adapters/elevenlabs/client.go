package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"voicebatch/internal/core/domain"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// Client implements ports.VoiceCatalog and ports.Converter against the
// ElevenLabs REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a Client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, domain.NewConversionError(domain.ErrorKindAuth, "elevenlabs api key is not set", nil)
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client: &http.Client{
			// Conversions of long recordings can take a while.
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// voicesResponse mirrors the GET /voices payload.
type voicesResponse struct {
	Voices []struct {
		VoiceID     string `json:"voice_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"voices"`
}

// Voices fetches the list of available target voices.
func (c *Client) Voices(ctx context.Context) ([]domain.VoiceDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindNetwork, "failed to build voices request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindNetwork, "failed to fetch voices", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var decoded voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindNetwork, "failed to decode voices response", err)
	}

	voices := make([]domain.VoiceDescriptor, 0, len(decoded.Voices))
	for _, v := range decoded.Voices {
		voices = append(voices, domain.VoiceDescriptor{
			ID:          v.VoiceID,
			Name:        v.Name,
			Description: v.Description,
		})
	}
	return voices, nil
}

// Convert submits the audio stream to the speech-to-speech endpoint and
// returns the converted audio bytes.
func (c *Client) Convert(ctx context.Context, voiceID string, audio io.Reader, settings domain.ConversionSettings) ([]byte, error) {
	if voiceID == "" {
		return nil, domain.NewConversionError(domain.ErrorKindValidation, "voice id is required", nil)
	}
	if err := settings.Validate(); err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindValidation, err.Error(), err)
	}

	body, contentType, err := buildConvertBody(audio, settings)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/speech-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindNetwork, "failed to build conversion request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindNetwork, "conversion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewConversionError(domain.ErrorKindNetwork, "failed to read converted audio", err)
	}
	if len(data) == 0 {
		return nil, domain.NewConversionError(domain.ErrorKindValidation, "api returned empty audio", nil)
	}
	return data, nil
}

// Ping verifies the API key by requesting the account's user record.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return domain.NewConversionError(domain.ErrorKindNetwork, "failed to build user request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewConversionError(domain.ErrorKindNetwork, "failed to reach elevenlabs", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}
	return nil
}

// buildConvertBody assembles the multipart form the speech-to-speech
// endpoint expects: the audio file plus model, format, and voice settings.
func buildConvertBody(audio io.Reader, settings domain.ConversionSettings) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "audio")
	if err != nil {
		return nil, "", domain.NewConversionError(domain.ErrorKindIO, "failed to build multipart body", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, "", domain.NewConversionError(domain.ErrorKindIO, "failed to read source audio", err)
	}

	fields := map[string]string{
		"model_id":                settings.ModelID,
		"output_format":           settings.OutputFormat,
		"remove_background_noise": strconv.FormatBool(settings.RemoveBackgroundNoise),
	}

	voiceSettings, err := json.Marshal(map[string]interface{}{
		"stability":         settings.Stability,
		"similarity_boost":  settings.SimilarityBoost,
		"style":             settings.Style,
		"use_speaker_boost": settings.SpeakerBoost,
	})
	if err != nil {
		return nil, "", domain.NewConversionError(domain.ErrorKindValidation, "failed to encode voice settings", err)
	}
	fields["voice_settings"] = string(voiceSettings)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", domain.NewConversionError(domain.ErrorKindIO, "failed to write multipart field", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", domain.NewConversionError(domain.ErrorKindIO, "failed to finalize multipart body", err)
	}
	return body, writer.FormDataContentType(), nil
}

// apiErrorBody mirrors the vendor's JSON error envelope. The detail field
// is either a plain string or an object with status and message.
type apiErrorBody struct {
	Detail     json.RawMessage `json:"detail"`
	StatusCode int             `json:"status_code"`
	ErrorType  string          `json:"error_type"`
}

// apiError maps a non-2xx response to the error taxonomy, preserving the
// vendor's detail message for display.
func (c *Client) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	message := fmt.Sprintf("unexpected api response: %s", resp.Status)
	errorType := ""

	var parsed apiErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil {
		errorType = parsed.ErrorType
		if detail := parseDetail(parsed.Detail); detail != "" {
			message = detail
		}
	}

	return &domain.ConversionError{
		Kind:       classifyStatus(resp.StatusCode, errorType),
		Message:    message,
		StatusCode: resp.StatusCode,
	}
}

// parseDetail extracts a human-readable message from the detail field.
func parseDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asObject struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && asObject.Message != "" {
		return asObject.Message
	}
	return ""
}

// classifyStatus maps HTTP status codes and vendor error types onto the
// error taxonomy.
func classifyStatus(status int, errorType string) domain.ErrorKind {
	switch errorType {
	case "quota_exceeded":
		return domain.ErrorKindQuota
	case "invalid_api_key":
		return domain.ErrorKindAuth
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrorKindAuth
	case status == http.StatusTooManyRequests:
		return domain.ErrorKindQuota
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusUnprocessableEntity:
		return domain.ErrorKindValidation
	default:
		return domain.ErrorKindNetwork
	}
}
