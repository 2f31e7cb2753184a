package transcriber

import (
	"context"
	"sync"
	"time"
)

// Fake returns a fixed result (or error) and records the samples it was
// given. Delay, when set, simulates a slow provider.
type Fake struct {
	Result Result
	Err    error
	Delay  time.Duration

	mu    sync.Mutex
	lang  string
	calls [][]int16
}

func NewFake(text string, confidence float64) *Fake {
	return &Fake{Result: Result{Text: text, Confidence: confidence}}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SwitchLanguage(code string) error {
	f.mu.Lock()
	f.lang = code
	f.mu.Unlock()
	return nil
}

func (f *Fake) Language() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *Fake) Transcribe(_ context.Context, samples []int16) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, samples)
	f.mu.Unlock()
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.Err != nil {
		return Result{}, f.Err
	}
	return f.Result, nil
}

// Calls returns the sample buffers passed to Transcribe so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
