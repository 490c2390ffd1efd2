// Package pipeline chains transcription, translation, and synthesis into one
// atomic unit of work per utterance. Stages run strictly in order; a failure
// at any stage aborts the request, with the sole exception of transcript
// persistence, which is best-effort.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/audio"
	"github.com/speechrelay/api/internal/cache"
	"github.com/speechrelay/api/internal/middleware"
	"github.com/speechrelay/api/internal/speech"
	"github.com/speechrelay/api/internal/store"
)

// synthesisCacheTTL bounds how long a cached text-only synthesis stays
// reusable.
const synthesisCacheTTL = 24 * time.Hour

// UtteranceResult is the composite outcome of one processed utterance.
type UtteranceResult struct {
	Transcription string
	Translation   string
	Audio         []byte
	SampleRate    int
	WordTimings   []speech.WordTiming
}

// Orchestrator sequences the three pipeline stages and records each
// utterance in the owning session's transcript.
type Orchestrator struct {
	speech *speech.Services
	store  *store.SessionStore
	cache  *cache.RedisCache
	log    *zap.Logger
}

// NewOrchestrator wires the pipeline. cache may be nil; text-only synthesis
// then always hits the provider.
func NewOrchestrator(svc *speech.Services, st *store.SessionStore, c *cache.RedisCache, log *zap.Logger) *Orchestrator {
	return &Orchestrator{speech: svc, store: st, cache: c, log: log}
}

// ProcessUtterance runs one utterance through normalize -> transcribe ->
// translate -> persist (best-effort) -> synthesize.
func (o *Orchestrator) ProcessUtterance(ctx context.Context, rawAudio []byte, fromLang, toLang, voiceID string, speed float64, teacherCode string) (*UtteranceResult, error) {
	samples, err := audio.DecodePCM16(rawAudio)
	if err != nil {
		return nil, err
	}
	samples = audio.Normalize(samples)

	start := time.Now()
	transcription, err := o.speech.Transcribe(ctx, samples, fromLang)
	middleware.RecordPipelineStage("transcribe", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	translation, err := o.speech.Translate(ctx, transcription, fromLang, toLang)
	middleware.RecordPipelineStage("translate", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	// Transcript durability is best-effort relative to the user-facing
	// real-time result: a persistence failure is logged and swallowed.
	entryID, err := o.store.StoreTranscriptEntry(ctx, teacherCode, transcription, translation)
	if err != nil {
		o.log.Error("failed to persist transcript entry",
			zap.String("teacher_code", teacherCode),
			zap.Error(err))
		entryID = 0
	}

	start = time.Now()
	result, err := o.speech.Synthesize(ctx, translation, voiceID, speed)
	middleware.RecordPipelineStage("synthesize", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	if entryID != 0 && len(result.WordTimings) > 0 {
		if payload, err := json.Marshal(result.WordTimings); err == nil {
			if err := o.store.AttachWordTimings(ctx, entryID, payload); err != nil {
				o.log.Warn("failed to attach word timings", zap.Error(err))
			}
		}
	}

	return &UtteranceResult{
		Transcription: transcription,
		Translation:   translation,
		Audio:         result.Audio,
		SampleRate:    result.SampleRate,
		WordTimings:   result.WordTimings,
	}, nil
}

type cachedSynthesis struct {
	Audio       []byte              `json:"audio"`
	SampleRate  int                 `json:"sample_rate"`
	WordTimings []speech.WordTiming `json:"word_timings"`
}

// SynthesizeOnly runs the synthesis stage standalone for text requests that
// skip transcription and translation. Results are cached when Redis is
// available; cache failures fall through to the provider.
func (o *Orchestrator) SynthesizeOnly(ctx context.Context, text, voiceID string, speed float64) (*UtteranceResult, error) {
	key := cache.SynthesisKey(text, voiceID, speed)
	if o.cache != nil {
		if data, err := o.cache.Get(ctx, key); err == nil {
			var cached cachedSynthesis
			if err := json.Unmarshal(data, &cached); err == nil {
				return &UtteranceResult{
					Audio:       cached.Audio,
					SampleRate:  cached.SampleRate,
					WordTimings: cached.WordTimings,
				}, nil
			}
		}
	}

	start := time.Now()
	result, err := o.speech.Synthesize(ctx, text, voiceID, speed)
	middleware.RecordPipelineStage("synthesize", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		payload, err := json.Marshal(cachedSynthesis{
			Audio:       result.Audio,
			SampleRate:  result.SampleRate,
			WordTimings: result.WordTimings,
		})
		if err == nil {
			if err := o.cache.Set(ctx, key, payload, synthesisCacheTTL); err != nil {
				o.log.Warn("failed to cache synthesis result", zap.Error(err))
			}
		}
	}

	return &UtteranceResult{
		Audio:       result.Audio,
		SampleRate:  result.SampleRate,
		WordTimings: result.WordTimings,
	}, nil
}
