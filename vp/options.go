package vp

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Common errors for option construction.
var (
	ErrEmptyText     = errors.New("speech text is empty")
	ErrEmptyNarrator = errors.New("narrator is empty")
	ErrEmptyPath     = errors.New("path is empty")
	ErrPitchRange    = errors.New("pitch is out of range (-300 to 300)")
	ErrSpeedRange    = errors.New("speed is out of range (50 to 200)")
	ErrEmotionEmpty  = errors.New("emotion map is empty")
	ErrEmotionRange  = errors.New("emotion weight is out of range (0 to 100)")
)

// Option contributes arguments to a synthesizer command line.
type Option interface {
	// Fill appends the option's arguments to argv.
	Fill(argv []string) []string
}

// SayOption passes a text chunk directly on the command line (--say).
type SayOption struct {
	text string
}

// Pitch and speed limits documented by the synthesizer's --help output.
const (
	MinPitch = -300
	MaxPitch = 300
	MinSpeed = 50
	MaxSpeed = 200
)

// NewSayOption validates and trims the given text.
func NewSayOption(text string) (*SayOption, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}
	return &SayOption{text: trimmed}, nil
}

// Fill implements Option.
func (o *SayOption) Fill(argv []string) []string {
	return append(argv, "--say", o.text)
}

// TextFileOption passes a file whose contents should be spoken (--text).
type TextFileOption struct {
	path string
}

// NewTextFileOption validates the given path.
func NewTextFileOption(path string) (*TextFileOption, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &TextFileOption{path: abs}, nil
}

// Fill implements Option.
func (o *TextFileOption) Fill(argv []string) []string {
	return append(argv, "--text", o.path)
}

// OutputOption names the audio file the synthesizer should write (--out).
type OutputOption struct {
	path string
}

// NewOutputOption validates the given path.
func NewOutputOption(path string) (*OutputOption, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &OutputOption{path: abs}, nil
}

// Fill implements Option.
func (o *OutputOption) Fill(argv []string) []string {
	return append(argv, "--out", o.path)
}

// NarratorOption selects a voice profile (--narrator).
type NarratorOption struct {
	narrator string
}

// NewNarratorOption validates the narrator name.
func NewNarratorOption(narrator string) (*NarratorOption, error) {
	trimmed := strings.TrimSpace(narrator)
	if trimmed == "" {
		return nil, ErrEmptyNarrator
	}
	return &NarratorOption{narrator: trimmed}, nil
}

// Fill implements Option.
func (o *NarratorOption) Fill(argv []string) []string {
	return append(argv, "--narrator", o.narrator)
}

// PitchOption adjusts voice pitch (--pitch).
type PitchOption struct {
	pitch int
}

// NewPitchOption validates the pitch against the documented range.
func NewPitchOption(pitch int) (*PitchOption, error) {
	if pitch < MinPitch || MaxPitch < pitch {
		return nil, fmt.Errorf("%w: %d", ErrPitchRange, pitch)
	}
	return &PitchOption{pitch: pitch}, nil
}

// Fill implements Option.
func (o *PitchOption) Fill(argv []string) []string {
	return append(argv, "--pitch", strconv.Itoa(o.pitch))
}

// SpeedOption adjusts speaking speed (--speed).
type SpeedOption struct {
	speed int
}

// NewSpeedOption validates the speed against the documented range.
func NewSpeedOption(speed int) (*SpeedOption, error) {
	if speed < MinSpeed || MaxSpeed < speed {
		return nil, fmt.Errorf("%w: %d", ErrSpeedRange, speed)
	}
	return &SpeedOption{speed: speed}, nil
}

// Fill implements Option.
func (o *SpeedOption) Fill(argv []string) []string {
	return append(argv, "--speed", strconv.Itoa(o.speed))
}

// EmotionOption mixes named emotion weights into the delivery (--emotion).
// Weights are 0 to 100 per name.
type EmotionOption struct {
	emotions map[string]int
}

// NewEmotionOption validates the emotion weights.
func NewEmotionOption(emotions map[string]int) (*EmotionOption, error) {
	if len(emotions) == 0 {
		return nil, ErrEmotionEmpty
	}
	for name, weight := range emotions {
		if weight < 0 || 100 < weight {
			return nil, fmt.Errorf("%w: %s=%d", ErrEmotionRange, name, weight)
		}
	}
	copied := make(map[string]int, len(emotions))
	for name, weight := range emotions {
		copied[name] = weight
	}
	return &EmotionOption{emotions: copied}, nil
}

// Fill implements Option. The name=weight pairs are emitted in sorted name
// order so the argument list is deterministic.
func (o *EmotionOption) Fill(argv []string) []string {
	names := make([]string, 0, len(o.emotions))
	for name := range o.emotions {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%d", name, o.emotions[name]))
	}
	return append(argv, "--emotion", strings.Join(pairs, ","))
}
