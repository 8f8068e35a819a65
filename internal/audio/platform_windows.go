//go:build windows

package audio

import (
	"strconv"

	"github.com/linuxmatters/blowout/internal/config"
)

// DirectShow has no safe default device; one must be configured.
func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:   "ffmpeg",
		BuildArgs: buildWindowsArgs,
	}
}

func buildWindowsArgs(device string, sampleRate int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "dshow",
		"-i", "audio=" + device,
		"-ac", strconv.Itoa(config.CaptureChannels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}
}
