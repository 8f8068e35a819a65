package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{16 * time.Millisecond, "16ms"},
		{500 * time.Millisecond, "500ms"},
		{2 * time.Second, "2.0s"},
		{90 * time.Second, "90.0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	out := FormatSummary(Summary{
		To:         "Martin",
		Trigger:    "blow",
		NoiseFloor: 0.0213,
		Calibrated: true,
		Elapsed:    42 * time.Second,
		Keepsake:   "card.png",
	})
	for _, want := range []string{"Candle blown out", "Martin", "by breath", "0.0213 RMS", "42.0s", "card.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	out = FormatSummary(Summary{Elapsed: time.Second})
	if !strings.Contains(out, "still burning") {
		t.Errorf("unfinished summary = %q", out)
	}
	if strings.Contains(out, "Noise floor") {
		t.Error("uncalibrated summary should not show a noise floor")
	}
}
