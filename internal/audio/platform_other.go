//go:build !linux && !darwin && !windows

package audio

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{}
}
