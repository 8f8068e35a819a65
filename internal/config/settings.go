package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DetectorSettings holds the blow detector tunables.
type DetectorSettings struct {
	ThresholdOffset   float64       `yaml:"threshold_offset" validate:"gt=0,lt=1"`
	RequiredBlow      time.Duration `yaml:"required_blow" validate:"gt=0"`
	CalibrationWindow time.Duration `yaml:"calibration_window" validate:"gt=0"`
	FrameSize         int           `yaml:"frame_size" validate:"min=64,max=32768"`
}

// Settings is the card content plus tunables, loaded from an optional YAML file.
type Settings struct {
	Recipient string           `yaml:"recipient" validate:"max=64"`
	Sender    string           `yaml:"sender" validate:"max=64"`
	Letter    string           `yaml:"letter" validate:"max=4000"`
	Message   string           `yaml:"message" validate:"max=280"`
	Song      string           `yaml:"song" validate:"max=4096"`
	Device    string           `yaml:"device" validate:"max=256"`
	Accent    string           `yaml:"accent"`
	Detector  DetectorSettings `yaml:"detector"`
}

// Default returns settings populated from the package constants.
func Default() Settings {
	return Settings{
		Letter:  DefaultLetter,
		Message: DefaultMessage,
		Detector: DetectorSettings{
			ThresholdOffset:   ThresholdOffset,
			RequiredBlow:      RequiredBlow,
			CalibrationWindow: CalibrationWindow,
			FrameSize:         FrameSize,
		},
	}
}

// Load reads a YAML settings file over the defaults. An empty path yields
// the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks every tunable is in range.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("%s %s", fieldName(e), formatValidationMessage(e)))
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}

	if s.Accent != "" {
		if _, _, _, err := ParseHexColor(s.Accent); err != nil {
			return fmt.Errorf("invalid settings: accent: %w", err)
		}
	}
	return nil
}

// fieldName turns "Settings.Detector.ThresholdOffset" into "Detector.ThresholdOffset".
func fieldName(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
