package speech

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestPlayerGainLastValueWins(t *testing.T) {
	p := NewPlayer()
	p.RequestVolume(0.2)
	p.RequestVolume(0.7)
	p.RequestVolume(1.5)

	p.applyPendingGain()

	if got := p.gainMultiplier(); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("multiplier = %v, want 1.5", got)
	}
}

func TestPlayerGainClamped(t *testing.T) {
	p := NewPlayer()
	p.RequestVolume(5.0)
	p.applyPendingGain()
	if got := p.gainMultiplier(); math.Abs(got-gainRatioCeil) > 1e-9 {
		t.Errorf("multiplier = %v, want %v", got, gainRatioCeil)
	}

	p.RequestVolume(0)
	p.applyPendingGain()
	if got := p.gainMultiplier(); math.Abs(got-gainRatioFloor) > 1e-9 {
		t.Errorf("multiplier = %v, want %v", got, gainRatioFloor)
	}
}

func TestPlayerGainQueueDropsOldest(t *testing.T) {
	p := NewPlayer()
	// Flood well past the queue capacity; the newest ratio must survive.
	for i := 0; i <= gainQueueCapacity*3; i++ {
		p.RequestVolume(float64(i) / 100)
	}
	p.RequestVolume(0.42)

	p.applyPendingGain()

	if got := p.gainMultiplier(); math.Abs(got-0.42) > 1e-9 {
		t.Errorf("multiplier = %v, want 0.42", got)
	}
}

func TestPlayerGainUnchangedWithoutRequests(t *testing.T) {
	p := NewPlayer()
	p.applyPendingGain()
	if got := p.gainMultiplier(); got != 1.0 {
		t.Errorf("multiplier = %v, want 1.0", got)
	}
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestGainStreamScalesSamples(t *testing.T) {
	p := NewPlayer()
	p.gainMult.Store(math.Float64bits(0.5))

	stream := &gainStream{player: p, data: pcmBytes([]int16{1000, -1000, 200})}
	buf := make([]byte, 64)
	n, err := stream.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("n = %d, want 6", n)
	}

	want := []int16{500, -500, 100}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}

	if _, err := stream.Read(buf); err != io.EOF {
		t.Errorf("got %v at end of data, want io.EOF", err)
	}
}

func TestGainStreamClipsAtFullScale(t *testing.T) {
	p := NewPlayer()
	p.gainMult.Store(math.Float64bits(2.0))

	stream := &gainStream{player: p, data: pcmBytes([]int16{30000, -30000})}
	buf := make([]byte, 16)
	if _, err := stream.Read(buf); err != nil {
		t.Fatal(err)
	}

	if got := int16(binary.LittleEndian.Uint16(buf[0:])); got != math.MaxInt16 {
		t.Errorf("positive clip = %d, want %d", got, math.MaxInt16)
	}
	if got := int16(binary.LittleEndian.Uint16(buf[2:])); got != math.MinInt16 {
		t.Errorf("negative clip = %d, want %d", got, math.MinInt16)
	}
}

func TestGainStreamStopsOnCancel(t *testing.T) {
	p := NewPlayer()
	stream := &gainStream{player: p, data: pcmBytes([]int16{1, 2, 3})}

	p.RequestCancel()

	if _, err := stream.Read(make([]byte, 16)); err != io.EOF {
		t.Errorf("got %v after cancel, want io.EOF", err)
	}
}

func TestGainStreamKeepsSamplePairsIntact(t *testing.T) {
	p := NewPlayer()
	stream := &gainStream{player: p, data: pcmBytes([]int16{1, 2})}

	// An odd-sized destination must not split a sample.
	n, err := stream.Read(make([]byte, 3))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
}

func TestPlayerCloseIdempotent(t *testing.T) {
	p := NewPlayer()
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	// Playing after close is a logged no-op, not an error.
	if err := p.Play(filepath.Join(t.TempDir(), "missing.wav")); err != nil {
		t.Errorf("Play after close: %v", err)
	}
}

func TestDecodeArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	samples := []int{0, 1000, -1000, 32767, -32768}
	writeTestWAV(t, path, samples)

	pcm, err := decodeArtifact(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("pcm length = %d, want %d", len(pcm), len(samples)*2)
	}
	for i, s := range samples {
		got := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if got != int16(s) {
			t.Errorf("sample %d = %d, want %d", i, got, s)
		}
	}
}

func TestDecodeArtifactMissingFile(t *testing.T) {
	if _, err := decodeArtifact(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
}

func writeTestWAV(t *testing.T, path string, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close() //nolint:errcheck

	enc := wav.NewEncoder(f, playerSampleRate, playerBitDepth, playerChannels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: playerChannels, SampleRate: playerSampleRate},
		SourceBitDepth: playerBitDepth,
		Data:           samples,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}
