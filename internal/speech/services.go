package speech

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/audio"
	"github.com/speechrelay/api/internal/errs"
)

// interSegmentSilence is the pause inserted between synthesized sentence
// pieces, in seconds of audio at speed 1.0.
const interSegmentSilence = 0.05

// Transcriber converts normalized mono float samples into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)
}

// Translator converts text between language codes.
type Translator interface {
	Translate(ctx context.Context, text, fromCode, toCode string) (string, error)
}

// SegmentSynthesis is one sentence piece as returned by a synthesis
// provider: raw samples plus the frame-by-phone alignment the word-timing
// math runs on.
type SegmentSynthesis struct {
	Samples    []float32
	SampleRate int
	Alignment  [][]float64
	Phones     []string
}

// Synthesizer produces speech for a single language. One handle per
// supported language is held for the life of the process.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speed float64) (SegmentSynthesis, error)
}

// SynthesisResult is a full utterance: WAV bytes plus word timings covering
// the whole text.
type SynthesisResult struct {
	Audio       []byte
	SampleRate  int
	WordTimings []WordTiming
}

// Services is the single seam to the three ML providers. Provider handles
// are read-only after construction and shared across concurrent requests.
type Services struct {
	transcriber Transcriber
	translator  Translator
	synths      map[string]Synthesizer
	log         *zap.Logger
}

// NewServices wires the providers. Every supported language must have a
// synthesizer handle up front; a missing one is a startup failure, not a
// per-request surprise.
func NewServices(transcriber Transcriber, translator Translator, synths map[string]Synthesizer, log *zap.Logger) (*Services, error) {
	for lang := range SupportedLanguages {
		if _, ok := synths[lang]; !ok {
			return nil, errs.New(errs.KindProviderInit,
				"no synthesizer initialized for language %q", lang)
		}
	}
	return &Services{
		transcriber: transcriber,
		translator:  translator,
		synths:      synths,
		log:         log,
	}, nil
}

// Transcribe validates the language before spending any provider compute.
func (s *Services) Transcribe(ctx context.Context, samples []float32, fromLang string) (string, error) {
	if !IsSupportedLanguage(fromLang) {
		return "", errs.New(errs.KindUnsupportedLanguage,
			"unsupported language for transcription: %s", fromLang)
	}
	text, err := s.transcriber.Transcribe(ctx, samples, fromLang)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "transcription failed")
	}
	return text, nil
}

// Translate is the identity when source and target match. An empty result
// from the provider is a hard failure: passing the original text through
// silently would make synthesis speak the wrong language.
func (s *Services) Translate(ctx context.Context, text, fromCode, toCode string) (string, error) {
	if fromCode == toCode {
		return text, nil
	}
	if !IsSupportedPair(fromCode, toCode) {
		return "", errs.New(errs.KindUnsupportedLanguagePair,
			"unsupported translation pair: %s -> %s", fromCode, toCode)
	}
	translated, err := s.translator.Translate(ctx, text, fromCode, toCode)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, err, "translation failed (%s to %s)", fromCode, toCode)
	}
	if strings.TrimSpace(translated) == "" {
		return "", errs.New(errs.KindTranslationEmpty,
			"translation returned empty output for %s to %s", fromCode, toCode)
	}
	return translated, nil
}

// Synthesize maps the voice to its language, synthesizes each sentence
// piece, concatenates the audio with a short silence gap, and offsets each
// segment's word timings by the cumulative duration of everything before it.
func (s *Services) Synthesize(ctx context.Context, text, voiceID string, speed float64) (*SynthesisResult, error) {
	if speed <= 0 {
		speed = 1.0
	}
	lang := VoiceLanguage(voiceID)
	synth, ok := s.synths[lang]
	if !ok {
		return nil, errs.New(errs.KindSynthesisFailed,
			"no synthesizer for language %q", lang)
	}

	pieces := SplitSentences(text)
	if len(pieces) == 0 {
		return nil, errs.New(errs.KindSynthesisFailed, "no synthesizable text")
	}

	var samples []float32
	var timings []WordTiming
	sampleRate := 0
	offset := 0.0

	for _, piece := range pieces {
		seg, err := synth.Synthesize(ctx, piece, speed)
		if err != nil {
			return nil, errs.Wrap(errs.KindSynthesisFailed, err, "speech synthesis failed")
		}
		if seg.SampleRate <= 0 || len(seg.Samples) == 0 {
			return nil, errs.New(errs.KindSynthesisFailed, "synthesizer produced empty audio")
		}
		sampleRate = seg.SampleRate

		segDuration := float64(len(seg.Samples)) / float64(seg.SampleRate)
		segTimings := WordTimingsFromAlignment(seg.Alignment, seg.Phones, segDuration)
		timings = append(timings, OffsetTimings(segTimings, offset)...)

		samples = append(samples, seg.Samples...)
		silence := int(float64(seg.SampleRate) * interSegmentSilence / speed)
		samples = append(samples, make([]float32, silence)...)
		offset += (float64(len(seg.Samples)) + float64(silence)) / float64(seg.SampleRate)
	}

	wav := audio.EncodeWAV(samples, sampleRate)
	if len(wav) == 0 {
		return nil, errs.New(errs.KindSynthesisFailed, "failed to generate audio")
	}
	return &SynthesisResult{
		Audio:       wav,
		SampleRate:  sampleRate,
		WordTimings: timings,
	}, nil
}

// GetAvailableVoices exposes the static voice catalog.
func (s *Services) GetAvailableVoices() []Voice {
	return AvailableVoices()
}

// GetLanguagePairs exposes the supported pairs grouped by source language.
func (s *Services) GetLanguagePairs() map[string][]string {
	return LanguagePairs()
}
