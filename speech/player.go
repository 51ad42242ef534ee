package speech

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/wav"
)

// The synthesizer always produces mono 16-bit signed PCM at 48 kHz.
const (
	playerSampleRate = 48000
	playerChannels   = 1
	playerBitDepth   = 16

	// streamBufferSize is the granularity at which cancellation and gain
	// changes are observed during playback.
	streamBufferSize = 4 * 1024

	// gainQueueCapacity bounds pending volume requests.
	gainQueueCapacity = 32

	// gainRatioFloor keeps the ratio strictly positive so the decibel
	// conversion stays defined; gainRatioCeil bounds amplification.
	gainRatioFloor = 0.0001
	gainRatioCeil  = 2.0
)

// AudioSink streams audio artifacts to an output device. Implementations
// must tolerate concurrent RequestVolume and RequestCancel calls while a
// Play is in progress.
type AudioSink interface {
	// Play streams the artifact at path until it ends or cancellation is
	// requested. A missing output device is not an error.
	Play(path string) error

	// RequestVolume queues a linear volume ratio to apply opportunistically.
	RequestVolume(ratio float64)

	// RequestCancel asks the sink to abort the current playback at the
	// next buffer boundary.
	RequestCancel()

	// Close drains and releases the output device. Safe to call twice.
	Close() error
}

// Player is the default AudioSink, backed by an oto output context. The
// context is opened lazily on the first Play; if no compatible device
// exists, the player degrades to a silent no-op rather than failing.
type Player struct {
	mu          sync.Mutex
	ctx         *oto.Context
	initialized bool
	noop        bool

	closed    atomic.Bool
	cancel    atomic.Bool
	closeOnce sync.Once

	gainQueue chan float64
	gainMult  atomic.Uint64 // float64 bits; linear multiplier after dB conversion
}

var _ AudioSink = (*Player)(nil)

// NewPlayer creates a player. No device is touched until the first Play.
func NewPlayer() *Player {
	p := &Player{
		gainQueue: make(chan float64, gainQueueCapacity),
	}
	p.gainMult.Store(math.Float64bits(1.0))
	return p
}

// RequestVolume queues a linear ratio (1.0 is unity gain). The queue is
// bounded; when full the oldest pending request is discarded so the most
// recent ratio always wins.
func (p *Player) RequestVolume(ratio float64) {
	select {
	case p.gainQueue <- ratio:
	default:
		select {
		case <-p.gainQueue:
		default:
		}
		select {
		case p.gainQueue <- ratio:
		default:
		}
	}
}

// RequestCancel aborts the current playback at the next buffer boundary.
func (p *Player) RequestCancel() {
	p.cancel.Store(true)
}

// Play streams the artifact at path to the output device, applying queued
// gain changes between buffers and honoring cancellation.
func (p *Player) Play(path string) error {
	if p.closed.Load() {
		log.Warn("player is already closed", "artifact", path)
		return nil
	}

	pcm, err := decodeArtifact(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if !p.initialized {
		p.initialize()
	}
	ctx := p.ctx
	noop := p.noop
	p.mu.Unlock()

	if noop || p.closed.Load() {
		return nil
	}

	p.applyPendingGain()

	stream := &gainStream{player: p, data: pcm}
	player := ctx.NewPlayer(stream)
	player.Play()

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
		if p.cancel.Load() {
			break
		}
	}
	if err := player.Close(); err != nil {
		log.Warn("closing oto player", "err", err)
	}

	// A cancelled playback shuts the whole sink down, mirroring an
	// operator stopping speech mid-stream.
	if p.cancel.Load() {
		return p.Close()
	}
	return nil
}

// Close releases the output device. Repeated calls are no-ops.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.mu.Lock()
		p.ctx = nil
		p.mu.Unlock()
		log.Debug("audio player closed")
	})
	return nil
}

// initialize opens the oto context for the fixed synthesizer format.
// Called with p.mu held.
func (p *Player) initialize() {
	p.initialized = true

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   playerSampleRate,
		ChannelCount: playerChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		log.Error("no compatible audio device; playback disabled", "err", err)
		p.noop = true
		return
	}
	<-ready
	p.ctx = ctx
}

// applyPendingGain drains the gain queue and applies the most recent
// ratio, converting it to a decibel gain and back to a sample multiplier.
func (p *Player) applyPendingGain() {
	var ratio float64
	pending := false
	for {
		select {
		case r := <-p.gainQueue:
			ratio = r
			pending = true
		default:
			if !pending {
				return
			}
			clamped := math.Min(math.Max(ratio, gainRatioFloor), gainRatioCeil)
			decibel := 20 * math.Log10(clamped)
			p.gainMult.Store(math.Float64bits(math.Pow(10, decibel/20)))
			log.Debug("set gain", "ratio", ratio, "decibel", decibel)
			return
		}
	}
}

func (p *Player) gainMultiplier() float64 {
	return math.Float64frombits(p.gainMult.Load())
}

// gainStream serves PCM to the oto player in fixed-size buffers, scaling
// samples by the current gain and observing cancellation between buffers.
type gainStream struct {
	player *Player
	data   []byte
	pos    int
}

func (s *gainStream) Read(buf []byte) (int, error) {
	if s.player.cancel.Load() || s.player.closed.Load() {
		return 0, io.EOF
	}
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}

	s.player.applyPendingGain()

	n := len(buf)
	if n > streamBufferSize {
		n = streamBufferSize
	}
	if remaining := len(s.data) - s.pos; n > remaining {
		n = remaining
	}
	// Keep sample pairs intact.
	n -= n % 2

	mult := s.player.gainMultiplier()
	for i := 0; i < n; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(s.data[s.pos+i:]))
		scaled := float64(sample) * mult
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(buf[i:], uint16(int16(scaled)))
	}
	s.pos += n
	return n, nil
}

// decodeArtifact reads a WAV artifact into raw little-endian PCM bytes.
func decodeArtifact(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close() //nolint:errcheck

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if dec.NumChans != playerChannels || dec.BitDepth != playerBitDepth {
		log.Warn("unexpected artifact format",
			"channels", dec.NumChans, "bitDepth", dec.BitDepth, "sampleRate", dec.SampleRate)
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample))) //nolint:gosec
	}
	return pcm, nil
}
