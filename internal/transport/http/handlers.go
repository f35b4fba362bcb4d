package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"voicebatch/internal/core/domain"
	"voicebatch/internal/core/ports"
	"voicebatch/internal/service"
)

// Handler exposes the batch-conversion workflow over a local HTTP API so a
// GUI host can drive it the same way the CLI does.
type Handler struct {
	catalog         ports.VoiceCatalog
	runner          *service.Runner
	defaultOutDir   string
	defaultSettings domain.ConversionSettings
	logger          *zap.SugaredLogger
}

// NewHandler creates the API handler.
func NewHandler(catalog ports.VoiceCatalog, runner *service.Runner, defaultOutDir string, defaultSettings domain.ConversionSettings, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		catalog:         catalog,
		runner:          runner,
		defaultOutDir:   defaultOutDir,
		defaultSettings: defaultSettings,
		logger:          logger,
	}
}

// Voices lists the available target voices.
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.catalog.Voices(r.Context())
	if err != nil {
		h.logger.Errorw("failed to list voices", "error", err)
		writeError(w, statusForKind(domain.KindOf(err)), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

// startBatchRequest is the POST /api/batches payload.
type startBatchRequest struct {
	Files     []string                   `json:"files"`
	VoiceID   string                     `json:"voice_id"`
	OutputDir string                     `json:"output_dir,omitempty"`
	Settings  *domain.ConversionSettings `json:"settings,omitempty"`
}

// StartBatch validates the request and launches a background batch.
func (h *Handler) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files must not be empty")
		return
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		writeError(w, http.StatusBadRequest, "voice_id is required")
		return
	}

	settings := h.defaultSettings
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	voice, err := h.lookupVoice(r, req.VoiceID)
	if err != nil {
		writeError(w, statusForKind(domain.KindOf(err)), err.Error())
		return
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = h.defaultOutDir
	}

	session := domain.NewBatchSession(req.Files, voice, outputDir, settings)
	if err := h.runner.Start(session); err != nil {
		if errors.Is(err, service.ErrBatchAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Infow("batch accepted", "session_id", session.ID, "jobs", len(session.Jobs))
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": session.ID})
}

// CurrentBatch returns a snapshot of the most recent batch.
func (h *Handler) CurrentBatch(w http.ResponseWriter, r *http.Request) {
	snapshot := h.runner.Current()
	if snapshot.Session == nil {
		writeError(w, http.StatusNotFound, "no batch has been started")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Events returns batch events newer than the since query parameter.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = parsed
	}
	events := h.runner.Events(since)
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// CancelBatch requests cooperative cancellation of the active batch.
func (h *Handler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Cancel(); err != nil {
		if errors.Is(err, service.ErrNoRunningBatch) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookupVoice resolves a voice id against the catalog so an unknown id is
// rejected before any file is submitted.
func (h *Handler) lookupVoice(r *http.Request, voiceID string) (domain.VoiceDescriptor, error) {
	voices, err := h.catalog.Voices(r.Context())
	if err != nil {
		return domain.VoiceDescriptor{}, err
	}
	for _, v := range voices {
		if v.ID == voiceID {
			return v, nil
		}
	}
	return domain.VoiceDescriptor{}, domain.NewConversionError(domain.ErrorKindValidation,
		"unknown voice id: "+voiceID, nil)
}

// statusForKind maps taxonomy kinds onto response codes for catalog and
// validation failures surfaced directly by the API.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindAuth:
		return http.StatusUnauthorized
	case domain.ErrorKindQuota:
		return http.StatusTooManyRequests
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
