// Package transcriber converts captured audio into text.
package transcriber

import (
	"context"
	"fmt"
	"os"
)

// Result is one finished transcription. Confidence is 0..1; NoSpeech is set
// when the provider judged the audio to contain no speech.
type Result struct {
	Text       string
	Confidence float64
	NoSpeech   bool
	Duration   float64 // audio length in seconds, as reported by the provider
}

// Transcriber is a batch, single-flight speech-to-text engine. Transcribe may
// take hundreds of milliseconds; callers must not hold locks across it.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, samples []int16) (Result, error)
	SwitchLanguage(code string) error
}

// New picks a provider from the environment.
func New() (Transcriber, error) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		return NewWhisperAPI(key), nil
	}
	return nil, fmt.Errorf("set GROQ_API_KEY environment variable")
}
