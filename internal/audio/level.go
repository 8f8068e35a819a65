// Package audio provides decoding, live capture, metering and frame sources
// for the blow detector.
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// MinDB is the minimum dB level (silence).
	MinDB = -60.0
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
)

// RMS returns the root-mean-square level of a frame. An empty frame is 0.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sumSquares float64
	for _, sample := range frame {
		sumSquares += sample * sample
	}
	return math.Sqrt(sumSquares / float64(len(frame)))
}

// ToDB converts a linear level to dBFS, clamped at MinDB.
func ToDB(level float64) float64 {
	if level <= 0 {
		return MinDB
	}
	return max(20*math.Log10(level), MinDB)
}

// DecodeS16LE converts mono S16LE PCM into float64 samples, appending to dst.
// A trailing odd byte is ignored.
func DecodeS16LE(dst []float64, pcm []byte) []float64 {
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		dst = append(dst, float64(sample)/MaxSampleValue)
	}
	return dst
}
