//go:build linux

package audio

import (
	"strconv"

	"github.com/linuxmatters/blowout/internal/config"
)

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:       "arecord",
		DefaultDevice: "default",
		BuildArgs:     buildLinuxArgs,
	}
}

func buildLinuxArgs(device string, sampleRate int) []string {
	return []string{
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(sampleRate),
		"-c", strconv.Itoa(config.CaptureChannels),
		"-t", "raw",
		"-q",
		"-",
	}
}
