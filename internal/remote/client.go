// Package remote defines the media-processing service contract the workflow
// orchestrators depend on, plus the HTTP implementation talking to the
// backend API.
package remote

import (
	"context"
	"fmt"
)

// Media is one binary payload submitted for transcription.
type Media struct {
	Name     string
	MimeType string
	Data     []byte
}

// Transcription is the transcription result.
type Transcription struct {
	Text             string
	DetectedLanguage string
}

// Health is the backend readiness snapshot.
type Health struct {
	Status            string
	ServiceConfigured bool
	Version           string
}

// Client is the remote collaborator performing transcription, translation,
// and speech synthesis. Transport and authentication are its concern, not
// the orchestrators'.
type Client interface {
	Transcribe(ctx context.Context, media Media, languageHint string) (Transcription, error)
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
	SynthesizeSpeech(ctx context.Context, text, voice, model, instructions string) ([]byte, error)
	CheckHealth(ctx context.Context) (Health, error)
}

// Error is a stage-tagged remote operation failure.
type Error struct {
	Stage   string
	Message string
	Err     error
}

// Error formats the failure for logs and UI.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
