//go:build darwin

package audio

import (
	"strconv"

	"github.com/linuxmatters/blowout/internal/config"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:       "ffmpeg",
		DefaultDevice: ":0",
		BuildArgs:     buildDarwinArgs,
	}
}

func buildDarwinArgs(device string, sampleRate int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "avfoundation",
		"-i", device,
		"-ac", strconv.Itoa(config.CaptureChannels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}
}
