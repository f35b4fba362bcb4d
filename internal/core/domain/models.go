package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a single conversion job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether a status is final for the job.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a job may move from one status to another.
// Transitions only move forward: a terminal job never changes again, and a
// job never returns to pending.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusPending:
		return to == JobStatusInProgress || to == JobStatusCancelled
	case JobStatusInProgress:
		return to == JobStatusSucceeded || to == JobStatusFailed
	default:
		return false
	}
}

// ConversionJob tracks one input file through the batch.
type ConversionJob struct {
	ID           string    `json:"id"`
	SourcePath   string    `json:"source_path"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OutputPath   string    `json:"output_path,omitempty"`
	OutputBytes  int64     `json:"output_bytes,omitempty"`
}

// Transition applies a validated status change to the job.
func (j *ConversionJob) Transition(to JobStatus) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("invalid job transition: %s -> %s", j.Status, to)
	}
	j.Status = to
	return nil
}

// VoiceDescriptor names one target voice offered by the vendor.
type VoiceDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Default model and output format submitted to the speech-to-speech endpoint.
const (
	DefaultModelID      = "eleven_multilingual_sts_v2"
	DefaultOutputFormat = "mp3_44100_128"
)

// ConversionSettings carries the vendor's tunable conversion options.
type ConversionSettings struct {
	Stability             float64 `json:"stability"`
	SimilarityBoost       float64 `json:"similarity_boost"`
	Style                 float64 `json:"style"`
	SpeakerBoost          bool    `json:"speaker_boost"`
	RemoveBackgroundNoise bool    `json:"remove_background_noise"`
	ModelID               string  `json:"model_id"`
	OutputFormat          string  `json:"output_format"`
}

// DefaultSettings returns the vendor defaults the desktop app submitted.
func DefaultSettings() ConversionSettings {
	return ConversionSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		ModelID:         DefaultModelID,
		OutputFormat:    DefaultOutputFormat,
	}
}

// Validate range-checks the unit-interval settings and fills in defaults
// for the model and output format when left empty.
func (s *ConversionSettings) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"stability", s.Stability},
		{"similarity_boost", s.SimilarityBoost},
		{"style", s.Style},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", c.name, c.value)
		}
	}

	if s.ModelID == "" {
		s.ModelID = DefaultModelID
	}
	if s.OutputFormat == "" {
		s.OutputFormat = DefaultOutputFormat
	}
	return nil
}

// BatchSession is one run of the batch: an ordered job queue, the chosen
// voice, and where the output goes.
type BatchSession struct {
	ID        string             `json:"id"`
	Jobs      []ConversionJob    `json:"jobs"`
	Voice     VoiceDescriptor    `json:"voice"`
	OutputDir string             `json:"output_dir"`
	Settings  ConversionSettings `json:"settings"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewBatchSession builds a session with one pending job per source path.
// Duplicate paths are dropped, keeping the first occurrence's position.
func NewBatchSession(sourcePaths []string, voice VoiceDescriptor, outputDir string, settings ConversionSettings) *BatchSession {
	seen := make(map[string]bool, len(sourcePaths))
	jobs := make([]ConversionJob, 0, len(sourcePaths))
	for _, path := range sourcePaths {
		if seen[path] {
			continue
		}
		seen[path] = true
		jobs = append(jobs, ConversionJob{
			ID:         uuid.New().String(),
			SourcePath: path,
			Status:     JobStatusPending,
		})
	}

	return &BatchSession{
		ID:        uuid.New().String(),
		Jobs:      jobs,
		Voice:     voice,
		OutputDir: outputDir,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary aggregates the terminal outcome of a batch run.
type Summary struct {
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	Cancelled  int   `json:"cancelled"`
	TotalBytes int64 `json:"total_bytes"`
}

// Progress is the payload delivered to a progress observer after each job
// status transition.
type Progress struct {
	Index int           `json:"index"`
	Total int           `json:"total"`
	Job   ConversionJob `json:"job"`
}
