package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

var validate = validator.New()

// Settings configures a render run.
type Settings struct {
	Canvas CanvasSettings `toml:"canvas"`
	Run    RunSettings    `toml:"run"`
	Style  StyleSettings  `toml:"style"`
	Camera CameraSettings `toml:"camera"`

	// StateFile holds the persisted map view node (MapFilter).
	StateFile string `toml:"state_file" validate:"required"`
}

// CanvasSettings sizes the output image.
type CanvasSettings struct {
	Width      int    `toml:"width" validate:"min=16,max=8192"`
	Height     int    `toml:"height" validate:"min=16,max=8192"`
	Background string `toml:"background" validate:"omitempty,hexcolor"`
}

// RunSettings drives the frame loop.
type RunSettings struct {
	Frames int `toml:"frames" validate:"min=1"`
	// Every writes a PNG on every Nth frame.
	Every int `toml:"every" validate:"min=1"`
	// Step is the simulation time advanced per frame.
	Step time.Duration `toml:"step" validate:"gt=0"`
	// Tick is the wall-clock frame period. Zero runs as fast as possible.
	Tick time.Duration `toml:"tick" validate:"gte=0"`
	// Start is the simulation epoch; empty means now.
	Start string `toml:"start" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	// Observer is the focused node ID whose route is highlighted.
	Observer string `toml:"observer"`
}

// StyleSettings overrides the overlay look.
type StyleSettings struct {
	LineWidth float64 `toml:"line_width" validate:"gt=0,lte=64"`
	ConeWidth float64 `toml:"cone_width" validate:"gt=0,lte=64"`
	Path      string  `toml:"path_color" validate:"omitempty,hexcolor"`
	Omni      string  `toml:"omni_color" validate:"omitempty,hexcolor"`
	Dish      string  `toml:"dish_color" validate:"omitempty,hexcolor"`
	Fallback  string  `toml:"fallback_color" validate:"omitempty,hexcolor"`
	Cone      string  `toml:"cone_color" validate:"omitempty,hexcolor"`
}

// CameraSettings places the map camera, in km.
type CameraSettings struct {
	Eye    [3]float64 `toml:"eye"`
	Target [3]float64 `toml:"target"`
	Up     [3]float64 `toml:"up"`
	FovDeg float64    `toml:"fov_deg" validate:"gt=0,lt=180"`
}

// Default returns settings for a 1024x768 view of Earth from GEO distance.
func Default() *Settings {
	return &Settings{
		Canvas: CanvasSettings{Width: 1024, Height: 768, Background: "#0b0d17"},
		Run: RunSettings{
			Frames: 60,
			Every:  10,
			Step:   time.Minute,
		},
		Style: StyleSettings{LineWidth: 5, ConeWidth: 2},
		Camera: CameraSettings{
			Eye:    [3]float64{60000, 0, 20000},
			Target: [3]float64{0, 0, 0},
			Up:     [3]float64{0, 0, 1},
			FovDeg: 40,
		},
		StateFile: "netview-state.toml",
	}
}

// LoadSettings reads path over the defaults and validates the result. A
// missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, s); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decode settings %s: %w", path, err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field ranges and color formats.
func (s *Settings) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil settings", ErrInvalidSettings)
	}
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// StartTime parses Run.Start, falling back to now when unset.
func (s *Settings) StartTime(now time.Time) time.Time {
	if s.Run.Start == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339, s.Run.Start)
	if err != nil {
		return now
	}
	return t
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	for _, e := range verrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%w: %s is required", ErrInvalidSettings, field)
		case "min", "gte":
			return fmt.Errorf("%w: %s must be at least %s", ErrInvalidSettings, field, e.Param())
		case "max", "lte":
			return fmt.Errorf("%w: %s must not exceed %s", ErrInvalidSettings, field, e.Param())
		case "hexcolor":
			return fmt.Errorf("%w: %s must be a hex color, got %q", ErrInvalidSettings, field, e.Value())
		default:
			return fmt.Errorf("%w: %s failed %s", ErrInvalidSettings, field, e.Tag())
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
}
