package vp

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// ErrNoSpeechInput is returned when neither direct text nor a text file was
// supplied to a ProcessBuilder.
var ErrNoSpeechInput = errors.New("require speech text or file")

// ErrSpeechFileNotExist is returned when the supplied text file cannot be
// found at build time.
var ErrSpeechFileNotExist = errors.New("not exist speech file")

// ProcessBuilder assembles a single synthesizer invocation. Zero values
// leave the corresponding option off the command line.
type ProcessBuilder struct {
	executable *Executable

	narrator string
	sayText  string
	textFile string
	output   string
	pitch    *int
	speed    *int
	emotion  map[string]int
}

// NewProcessBuilder creates a builder for the given executable.
func NewProcessBuilder(executable *Executable) *ProcessBuilder {
	return &ProcessBuilder{executable: executable}
}

// WithNarrator selects the voice profile.
func (b *ProcessBuilder) WithNarrator(narrator string) *ProcessBuilder {
	b.narrator = narrator
	return b
}

// WithSayText sets the text to speak directly.
func (b *ProcessBuilder) WithSayText(text string) *ProcessBuilder {
	b.sayText = text
	return b
}

// WithTextFile sets a file whose contents should be spoken.
func (b *ProcessBuilder) WithTextFile(path string) *ProcessBuilder {
	b.textFile = path
	return b
}

// WithOutput sets the audio output path.
func (b *ProcessBuilder) WithOutput(path string) *ProcessBuilder {
	b.output = path
	return b
}

// WithPitch sets the pitch adjustment.
func (b *ProcessBuilder) WithPitch(pitch int) *ProcessBuilder {
	b.pitch = &pitch
	return b
}

// WithSpeed sets the speaking speed.
func (b *ProcessBuilder) WithSpeed(speed int) *ProcessBuilder {
	b.speed = &speed
	return b
}

// WithEmotion sets the emotion weight mixture.
func (b *ProcessBuilder) WithEmotion(emotion map[string]int) *ProcessBuilder {
	b.emotion = emotion
	return b
}

func (b *ProcessBuilder) hasSayText() bool {
	_, err := NewSayOption(b.sayText)
	return err == nil
}

// Build validates the accumulated options and produces a launchable
// Process. Option range violations surface here, before any external
// process is started.
func (b *ProcessBuilder) Build() (*Process, error) {
	if !b.hasSayText() && b.textFile == "" {
		return nil, ErrNoSpeechInput
	}
	if b.textFile != "" {
		if _, err := os.Stat(b.textFile); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSpeechFileNotExist, b.textFile)
		}
	}
	if b.hasSayText() && b.textFile != "" {
		// The real executable accepts both and speaks the --say text.
		log.Warn("both --say and --text supplied; --say takes precedence")
	}

	argv := b.executable.Fill(nil)

	if b.narrator != "" {
		opt, err := NewNarratorOption(b.narrator)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.hasSayText() {
		opt, err := NewSayOption(b.sayText)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.textFile != "" {
		opt, err := NewTextFileOption(b.textFile)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.output != "" {
		opt, err := NewOutputOption(b.output)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.pitch != nil {
		opt, err := NewPitchOption(*b.pitch)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.speed != nil {
		opt, err := NewSpeedOption(*b.speed)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if len(b.emotion) > 0 {
		opt, err := NewEmotionOption(b.emotion)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}

	return NewProcess(argv), nil
}
