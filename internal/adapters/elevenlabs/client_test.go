package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voicebatch/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("")
	if err == nil {
		t.Fatal("expected error for empty api key")
	}
	if domain.KindOf(err) != domain.ErrorKindAuth {
		t.Fatalf("expected auth kind, got %s", domain.KindOf(err))
	}
}

func TestVoices_DecodesCatalog(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[
			{"voice_id":"v1","name":"Rachel","description":"calm"},
			{"voice_id":"v2","name":"Adam"}
		]}`))
	})

	voices, err := client.Voices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].ID != "v1" || voices[0].Name != "Rachel" || voices[0].Description != "calm" {
		t.Fatalf("unexpected first voice: %+v", voices[0])
	}
	if voices[1].ID != "v2" || voices[1].Name != "Adam" {
		t.Fatalf("unexpected second voice: %+v", voices[1])
	}
}

func TestConvert_SubmitsMultipartAndReturnsAudio(t *testing.T) {
	converted := []byte("converted-audio-bytes")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech-to-speech/v1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart: %v", err)
		}
		if got := r.FormValue("model_id"); got != domain.DefaultModelID {
			t.Errorf("unexpected model_id: %s", got)
		}
		if got := r.FormValue("output_format"); got != domain.DefaultOutputFormat {
			t.Errorf("unexpected output_format: %s", got)
		}
		if got := r.FormValue("remove_background_noise"); got != "true" {
			t.Errorf("unexpected remove_background_noise: %s", got)
		}
		if got := r.FormValue("voice_settings"); !strings.Contains(got, `"similarity_boost":0.75`) {
			t.Errorf("voice_settings missing similarity boost: %s", got)
		}

		file, _, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("missing audio part: %v", err)
		}
		defer file.Close()
		var buf bytes.Buffer
		buf.ReadFrom(file)
		if buf.String() != "source-audio" {
			t.Errorf("unexpected audio payload: %q", buf.String())
		}

		w.Write(converted)
	})

	settings := domain.DefaultSettings()
	settings.RemoveBackgroundNoise = true

	got, err := client.Convert(context.Background(), "v1", strings.NewReader("source-audio"), settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, converted) {
		t.Fatalf("unexpected audio: %q", got)
	}
}

func TestConvert_RejectsEmptyVoiceID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Convert(context.Background(), "", strings.NewReader("x"), domain.DefaultSettings())
	if domain.KindOf(err) != domain.ErrorKindValidation {
		t.Fatalf("expected validation kind, got %v", err)
	}
}

func TestConvert_MapsErrorResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   domain.ErrorKind
		detail string
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`,
			kind:   domain.ErrorKindAuth,
			detail: "Invalid API key",
		},
		{
			name:   "quota by status",
			status: http.StatusTooManyRequests,
			body:   `{"detail":"Rate limited"}`,
			kind:   domain.ErrorKindQuota,
			detail: "Rate limited",
		},
		{
			name:   "quota by error type",
			status: http.StatusPaymentRequired,
			body:   `{"detail":"Not enough credits","error_type":"quota_exceeded"}`,
			kind:   domain.ErrorKindQuota,
			detail: "Not enough credits",
		},
		{
			name:   "validation",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":"Invalid audio file"}`,
			kind:   domain.ErrorKindValidation,
			detail: "Invalid audio file",
		},
		{
			name:   "unknown voice",
			status: http.StatusNotFound,
			body:   `{"detail":"Voice not found"}`,
			kind:   domain.ErrorKindValidation,
			detail: "Voice not found",
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `not json`,
			kind:   domain.ErrorKindNetwork,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := client.Convert(context.Background(), "v1", strings.NewReader("x"), domain.DefaultSettings())
			if err == nil {
				t.Fatal("expected error")
			}

			var ce *domain.ConversionError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConversionError, got %T", err)
			}
			if ce.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, ce.Kind)
			}
			if ce.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, ce.StatusCode)
			}
			if tc.detail != "" && !strings.Contains(ce.Message, tc.detail) {
				t.Fatalf("expected message to contain %q, got %q", tc.detail, ce.Message)
			}
		})
	}
}

func TestConvert_TransportFailureIsNetworkKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.Convert(context.Background(), "v1", strings.NewReader("x"), domain.DefaultSettings())
	if domain.KindOf(err) != domain.ErrorKindNetwork {
		t.Fatalf("expected network kind, got %v", err)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"subscription":{}}`))
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unauthorized := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid API key"}`))
	})
	err := unauthorized.Ping(context.Background())
	if domain.KindOf(err) != domain.ErrorKindAuth {
		t.Fatalf("expected auth kind, got %v", err)
	}
}
