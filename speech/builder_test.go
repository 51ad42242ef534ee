package speech

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/k7t3/vpspeech/vp"
)

func testExecutable(t *testing.T) *vp.Executable {
	t.Helper()
	exe, err := vp.NewExecutablePath("/opt/voicepeak/voicepeak")
	if err != nil {
		t.Fatal(err)
	}
	return exe
}

func TestBuilderRequiresText(t *testing.T) {
	_, err := NewBuilder(testExecutable(t)).Build()
	if !errors.Is(err, ErrNoSpeechText) {
		t.Fatalf("got %v, want ErrNoSpeechText", err)
	}

	_, err = NewBuilder(testExecutable(t)).WithText("   \n ").Build()
	if !errors.Is(err, ErrNoSpeechText) {
		t.Fatalf("got %v, want ErrNoSpeechText", err)
	}
}

func TestBuilderChunkSizeFallback(t *testing.T) {
	// A chunk size below the minimum silently falls back to the default.
	runner, err := NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithChunkSize(2).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.tasks) != 1 {
		t.Errorf("tasks = %d, want 1", len(runner.tasks))
	}
}

func TestBuilderOneTaskPerChunk(t *testing.T) {
	tempDir := t.TempDir()
	runner, err := NewBuilder(testExecutable(t)).
		WithText(passage88).
		WithNarrator("Zundamon").
		WithChunkSize(44).
		WithTempDir(tempDir).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(runner.tasks))
	}

	seen := map[string]bool{}
	for i, task := range runner.tasks {
		argv := task.process.Argv()
		if argv[0] != "/opt/voicepeak/voicepeak" {
			t.Errorf("task %d argv[0] = %s", i, argv[0])
		}
		if !slices.Contains(argv, "--say") {
			t.Errorf("task %d missing --say: %v", i, argv)
		}
		if !slices.Contains(argv, "--narrator") {
			t.Errorf("task %d missing --narrator: %v", i, argv)
		}

		out := slices.Index(argv, "--out")
		if out < 0 || out+1 >= len(argv) {
			t.Fatalf("task %d missing --out: %v", i, argv)
		}
		artifact := argv[out+1]
		if artifact != task.artifact {
			t.Errorf("task %d artifact mismatch: %s vs %s", i, artifact, task.artifact)
		}
		if filepath.Dir(artifact) != tempDir {
			t.Errorf("task %d artifact outside temp dir: %s", i, artifact)
		}
		if !strings.HasSuffix(artifact, ".wav") {
			t.Errorf("task %d artifact is not a wav: %s", i, artifact)
		}
		if seen[artifact] {
			t.Errorf("task %d reuses artifact %s", i, artifact)
		}
		seen[artifact] = true
	}
}

func TestBuilderCreatesTempDir(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "artifacts", "speech")
	_, err := NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithTempDir(nested).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(nested)
	if err != nil || !info.IsDir() {
		t.Errorf("temp dir not created: %v", err)
	}
}

func TestBuilderRejectsFileAsTempDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithTempDir(file).
		Build()
	if !errors.Is(err, ErrBadTempDir) {
		t.Fatalf("got %v, want ErrBadTempDir", err)
	}
}

func TestBuilderClampsVolumeAndDelay(t *testing.T) {
	runner, err := NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithVolume(1.8).
		WithDelay(-time.Second).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if runner.volume != 1 {
		t.Errorf("volume = %v, want 1", runner.volume)
	}
	if runner.delay != 0 {
		t.Errorf("delay = %v, want 0", runner.delay)
	}

	runner, err = NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithVolume(-0.5).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if runner.volume != 0 {
		t.Errorf("volume = %v, want 0", runner.volume)
	}
}

func TestBuilderOptionErrorsSurface(t *testing.T) {
	_, err := NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithPitch(vp.MaxPitch + 1).
		Build()
	if !errors.Is(err, vp.ErrPitchRange) {
		t.Fatalf("got %v, want ErrPitchRange", err)
	}

	_, err = NewBuilder(testExecutable(t)).
		WithText("こんにちは。").
		WithEmotion(map[string]int{"happy": -5}).
		Build()
	if !errors.Is(err, vp.ErrEmotionRange) {
		t.Fatalf("got %v, want ErrEmotionRange", err)
	}
}
