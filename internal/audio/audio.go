// Package audio converts between the wire formats used at the pipeline
// boundary: little-endian 16-bit PCM on the way in, WAV on the way out, and
// normalized float32 samples everywhere in between.
package audio

import (
	"encoding/binary"
	"math"

	"github.com/speechrelay/api/internal/errs"
)

// DecodePCM16 converts raw little-endian 16-bit PCM bytes into float32
// samples in [-1, 1]. An odd byte count cannot be coerced into 16-bit
// frames and is rejected as malformed.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, errs.New(errs.KindMalformedAudio,
			"malformed audio: %d bytes is not a whole number of 16-bit samples", len(data))
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}

// Normalize coerces samples into [-1, 1]. Input already in range passes
// through untouched; anything hotter is assumed to be un-scaled 16-bit
// values and is divided down rather than rejected.
func Normalize(samples []float32) []float32 {
	inRange := true
	for _, s := range samples {
		if s > 1.0 || s < -1.0 {
			inRange = false
			break
		}
	}
	if inRange {
		return samples
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / 32768.0
	}
	return out
}

// EncodeWAV wraps float32 samples in a mono 16-bit PCM WAV container.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	dataSize := len(samples) * 2
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		v := int16(math.Round(float64(clamp(s)) * 32767))
		binary.LittleEndian.PutUint16(buf[44+2*i:], uint16(v))
	}
	return buf
}

// EncodePCM16 converts float32 samples back to raw little-endian 16-bit PCM.
func EncodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Round(float64(clamp(s)) * 32767))
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

func clamp(s float32) float32 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
