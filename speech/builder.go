package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/k7t3/vpspeech/vp"
)

const (
	// DefaultChunkSize matches the synthesizer's per-invocation limit.
	DefaultChunkSize = 140

	// DefaultVolume is a conservative initial playback level.
	DefaultVolume = 0.5
)

// Builder assembles a speech pipeline: it splits the text into
// synthesizer-sized chunks and prepares one synthesis task per chunk.
// Configuration errors surface at Build, before any process is launched.
type Builder struct {
	executable *vp.Executable

	text      string
	narrator  string
	pitch     *int
	speed     *int
	emotion   map[string]int
	tempDir   string
	chunkSize int
	delay     time.Duration
	volume    float64
	sink      AudioSink
}

// NewBuilder creates a builder for the given synthesizer executable.
func NewBuilder(executable *vp.Executable) *Builder {
	return &Builder{
		executable: executable,
		volume:     DefaultVolume,
	}
}

// WithText sets the text to speak.
func (b *Builder) WithText(text string) *Builder {
	b.text = text
	return b
}

// WithNarrator selects the voice profile.
func (b *Builder) WithNarrator(narrator string) *Builder {
	b.narrator = narrator
	return b
}

// WithPitch sets the pitch adjustment.
func (b *Builder) WithPitch(pitch int) *Builder {
	b.pitch = &pitch
	return b
}

// WithSpeed sets the speaking speed.
func (b *Builder) WithSpeed(speed int) *Builder {
	b.speed = &speed
	return b
}

// WithEmotion sets the emotion weight mixture.
func (b *Builder) WithEmotion(emotion map[string]int) *Builder {
	b.emotion = emotion
	return b
}

// WithTempDir sets the directory for audio artifacts. Defaults to the
// system temporary directory; created if missing.
func (b *Builder) WithTempDir(dir string) *Builder {
	b.tempDir = dir
	return b
}

// WithChunkSize sets the maximum chunk length in characters. Values below
// the minimum fall back to the synthesizer default.
func (b *Builder) WithChunkSize(size int) *Builder {
	b.chunkSize = size
	return b
}

// WithDelay sets the startup delay applied before the first playback so
// the synthesis lane can build a lead. Only used with more than one chunk.
func (b *Builder) WithDelay(delay time.Duration) *Builder {
	b.delay = delay
	return b
}

// WithVolume sets the initial playback volume, clamped to 0.0 to 1.0.
func (b *Builder) WithVolume(volume float64) *Builder {
	b.volume = volume
	return b
}

// WithAudioSink overrides the default audio output.
func (b *Builder) WithAudioSink(sink AudioSink) *Builder {
	b.sink = sink
	return b
}

// Build splits the text and prepares the pipeline. The runner has not
// started any external process yet.
func (b *Builder) Build() (*Runner, error) {
	if strings.TrimSpace(b.text) == "" {
		return nil, ErrNoSpeechText
	}

	chunkSize := b.chunkSize
	if chunkSize < MinChunkSize {
		chunkSize = DefaultChunkSize
	}

	chunks, err := NewSplitter().Split(b.text, chunkSize)
	if err != nil {
		return nil, err
	}
	log.Debug("split text", "chunks", len(chunks), "chunkSize", chunkSize)

	tempDir, err := b.ensureTempDir()
	if err != nil {
		return nil, err
	}

	volume := b.volume
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}

	delay := b.delay
	if delay < 0 {
		delay = 0
	}

	tasks := make([]*task, 0, len(chunks))
	for i, chunk := range chunks {
		t, err := b.createTask(i, chunk, tempDir)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return &Runner{
		tasks:  tasks,
		sink:   b.sink,
		volume: volume,
		delay:  delay,
	}, nil
}

func (b *Builder) ensureTempDir() (string, error) {
	dir := b.tempDir
	if dir == "" {
		return os.TempDir(), nil
	}
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create temporal directory: %w", err)
		}
	case err != nil:
		return "", err
	case !info.IsDir():
		return "", fmt.Errorf("%w: %s", ErrBadTempDir, dir)
	}
	return dir, nil
}

// createTask builds the full command line for one chunk plus the artifact
// path the synthesizer will write to.
func (b *Builder) createTask(index int, chunk string, tempDir string) (*task, error) {
	argv := b.executable.Fill(nil)

	say, err := vp.NewSayOption(chunk)
	if err != nil {
		return nil, err
	}
	argv = say.Fill(argv)

	if b.narrator != "" {
		opt, err := vp.NewNarratorOption(b.narrator)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.pitch != nil {
		opt, err := vp.NewPitchOption(*b.pitch)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if b.speed != nil {
		opt, err := vp.NewSpeedOption(*b.speed)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}
	if len(b.emotion) > 0 {
		opt, err := vp.NewEmotionOption(b.emotion)
		if err != nil {
			return nil, err
		}
		argv = opt.Fill(argv)
	}

	artifact := filepath.Join(tempDir, uuid.NewString()+".wav")
	out, err := vp.NewOutputOption(artifact)
	if err != nil {
		return nil, err
	}
	argv = out.Fill(argv)

	return &task{
		index:    index,
		process:  vp.NewProcess(argv),
		artifact: artifact,
		done:     make(chan taskResult, 1),
	}, nil
}
