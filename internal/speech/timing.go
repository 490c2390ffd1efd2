package speech

import "strings"

// WordTiming marks when a word is audible in synthesized speech, in seconds
// from the start of the full utterance.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// wordBoundary is a word's span over the phone sequence, in phone column
// indices.
type wordBoundary struct {
	word     string
	startIdx int
	endIdx   int
}

// activeFrameThreshold: frames carrying less than 10% of a word's peak
// alignment weight are treated as silence bleed, not the word itself.
const activeFrameThreshold = 0.1

// segmentWordBoundaries tokenizes the phone sequence into words. '|' and '#'
// are boundary markers; '@'-prefixed phones are control symbols that carry
// no visible text.
func segmentWordBoundaries(phones []string) []wordBoundary {
	var boundaries []wordBoundary
	var text []string
	startIdx := 0
	inWord := false

	for i, phone := range phones {
		if phone == "|" || phone == "#" {
			if inWord {
				boundaries = append(boundaries, wordBoundary{
					word:     strings.Join(text, ""),
					startIdx: startIdx,
					endIdx:   i,
				})
				text = nil
				inWord = false
			}
			startIdx = i + 1
			continue
		}
		inWord = true
		if !strings.HasPrefix(phone, "@") && !strings.HasPrefix(phone, "#") {
			text = append(text, phone)
		}
	}
	if inWord {
		boundaries = append(boundaries, wordBoundary{
			word:     strings.Join(text, ""),
			startIdx: startIdx,
			endIdx:   len(phones),
		})
	}
	return boundaries
}

// WordTimingsFromAlignment derives per-word time spans from a frame-by-phone
// alignment matrix. For each word: sum the alignment weight over its phone
// columns per frame, keep frames above 10% of the word's peak, take the
// first/last active frame, widen by one frame toward adjacent words so
// playback highlighting doesn't clip, and scale frame indices by
// audioDuration / totalFrames.
//
// The result is monotonically non-decreasing in start time for one
// synthesized segment.
func WordTimingsFromAlignment(alignment [][]float64, phones []string, audioDuration float64) []WordTiming {
	frames := len(alignment)
	if frames == 0 {
		return nil
	}
	boundaries := segmentWordBoundaries(phones)
	timePerFrame := audioDuration / float64(frames)

	var timings []WordTiming
	for i, b := range boundaries {
		weights := make([]float64, frames)
		peak := 0.0
		for f := 0; f < frames; f++ {
			row := alignment[f]
			end := b.endIdx
			if end > len(row) {
				end = len(row)
			}
			for p := b.startIdx; p < end; p++ {
				weights[f] += row[p]
			}
			if weights[f] > peak {
				peak = weights[f]
			}
		}
		if peak == 0 {
			continue
		}

		startFrame, endFrame := -1, -1
		for f := 0; f < frames; f++ {
			if weights[f] > peak*activeFrameThreshold {
				if startFrame < 0 {
					startFrame = f
				}
				endFrame = f
			}
		}
		if startFrame < 0 {
			continue
		}

		// One frame of slack on each side where a neighboring word exists.
		if i > 0 && startFrame > 0 {
			startFrame--
		}
		if i < len(boundaries)-1 && endFrame < frames-1 {
			endFrame++
		}

		timings = append(timings, WordTiming{
			Word:  b.word,
			Start: float64(startFrame) * timePerFrame,
			End:   float64(endFrame+1) * timePerFrame,
		})
	}
	return timings
}

// OffsetTimings shifts a segment's timings by the cumulative duration of all
// prior segments (audio plus inter-segment silence).
func OffsetTimings(timings []WordTiming, offset float64) []WordTiming {
	out := make([]WordTiming, len(timings))
	for i, t := range timings {
		out[i] = WordTiming{Word: t.Word, Start: t.Start + offset, End: t.End + offset}
	}
	return out
}
