package ports

import (
	"context"
	"io"

	"voicebatch/internal/core/domain"
)

// VoiceCatalog defines the contract for listing target voices offered by
// the conversion service.
type VoiceCatalog interface {
	// Voices retrieves the available voice descriptors. Implementations
	// may cache for the session; callers treat the result as immutable.
	Voices(ctx context.Context) ([]domain.VoiceDescriptor, error)
}

// Converter defines the contract for one speech-to-speech conversion.
type Converter interface {
	// Convert submits the audio stream for conversion into the target
	// voice and returns the converted audio bytes. Failures carry a
	// domain.ConversionError describing what went wrong.
	Convert(ctx context.Context, voiceID string, audio io.Reader, settings domain.ConversionSettings) ([]byte, error)
}

// OutputStore defines the contract for persisting converted audio.
type OutputStore interface {
	// Write stores the converted bytes for the given source base name and
	// returns the final path the file was written to.
	Write(ctx context.Context, dir, baseName string, data []byte) (string, error)
}

// ProgressObserver receives a notification after every job status
// transition. A nil observer is valid and means no reporting.
type ProgressObserver func(domain.Progress)
