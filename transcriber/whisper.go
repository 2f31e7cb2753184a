package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"sotto/encoder"
	"sotto/log"
)

const (
	whisperURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	whisperModel = "whisper-large-v3-turbo"

	// Segments above this no-speech probability are treated as silence.
	noSpeechCutoff = 0.6
)

// WhisperAPI transcribes via a hosted Whisper endpoint (Groq-compatible).
// Captured PCM is FLAC-compressed before upload.
type WhisperAPI struct {
	apiKey string
	apiURL string
	client *http.Client

	mu   sync.Mutex
	lang string
}

func NewWhisperAPI(apiKey string) *WhisperAPI {
	return &WhisperAPI{
		apiKey: apiKey,
		apiURL: whisperURL,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (w *WhisperAPI) Name() string { return "whisper-api" }

func (w *WhisperAPI) SwitchLanguage(code string) error {
	w.mu.Lock()
	w.lang = code
	w.mu.Unlock()
	return nil
}

func (w *WhisperAPI) language() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lang
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (w *WhisperAPI) Transcribe(ctx context.Context, samples []int16) (Result, error) {
	start := time.Now()
	audio, err := encoder.EncodeFlac(samples)
	if err != nil {
		return Result{}, fmt.Errorf("encoding audio: %w", err)
	}
	encodeTime := time.Since(start)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, err
	}
	writer.WriteField("model", whisperModel)
	writer.WriteField("response_format", "verbose_json")
	if lang := w.language(); lang != "" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	reqStart := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("whisper API error %d: %s", resp.StatusCode, respBody)
	}

	var wr whisperResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return Result{}, fmt.Errorf("whisper response parse error: %w", err)
	}
	res := resultFromResponse(wr)

	rawKB := float64(len(samples)*2) / 1024
	compressedKB := float64(len(audio)) / 1024
	var compressionPct float64
	if rawKB > 0 {
		compressionPct = 100 * (1 - compressedKB/rawKB)
	}
	log.TranscriptionMetrics(log.Metrics{
		AudioLengthS:     float64(len(samples)) / encoder.SampleRate,
		RawSizeKB:        rawKB,
		CompressedSizeKB: compressedKB,
		CompressionPct:   compressionPct,
		EncodeTimeMs:     float64(encodeTime.Milliseconds()),
		RequestTimeMs:    float64(time.Since(reqStart).Milliseconds()),
		TotalTimeMs:      float64(time.Since(start).Milliseconds()),
	}, w.Name())
	log.Confidence(res.Confidence)
	return res, nil
}

func resultFromResponse(wr whisperResponse) Result {
	res := Result{Text: wr.Text, Duration: wr.Duration}
	if len(wr.Segments) == 0 {
		res.NoSpeech = res.Text == ""
		return res
	}

	var logProbSum, maxNoSpeech float64
	for _, seg := range wr.Segments {
		logProbSum += seg.AvgLogProb
		if seg.NoSpeechProb > maxNoSpeech {
			maxNoSpeech = seg.NoSpeechProb
		}
	}
	// avg_logprob is the mean token log-probability; exp maps it back to 0..1.
	res.Confidence = math.Exp(logProbSum / float64(len(wr.Segments)))
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	res.NoSpeech = maxNoSpeech > noSpeechCutoff && res.Text == ""
	return res
}
