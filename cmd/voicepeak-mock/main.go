// Command voicepeak-mock imitates the VOICEPEAK v1.2.11 command line so the
// library and pipeline can be exercised without a licensed installation. It
// accepts the same flags, reports the received parameters on stdout, sleeps
// to emulate synthesis latency and writes a short test tone to the output
// path.
package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
)

const (
	sampleRate = 48000
	channels   = 1
	bitDepth   = 16

	// toneDuration keeps generated artifacts short but audible.
	toneDuration = 300 * time.Millisecond
	toneHz       = 440.0
)

var narratorEmotions = map[string][]string{
	"Zundamon":       {"amaama", "aori", "hisohiso", "live", "tsuntsun"},
	"Tohoku Kiritan": {"bright", "dere", "dull", "angry", "teary"},
}

var (
	sayText      string
	textFile     string
	outFile      string
	narrator     string
	emotionSpec  string
	speed        int
	pitch        int
	listNarrator bool
	listEmotion  string

	rootCmd = &cobra.Command{
		Use:           "voicepeak",
		Short:         "VOICEPEAK command line (mock)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          run,
	}
)

// printBug mirrors the diagnostic the real executable emits for unknown
// narrators and unsupported emotions.
func printBug() {
	fmt.Fprintln(os.Stderr, "Internal BUG occurred. Please report what you are doing and these details to us.")
	fmt.Fprintln(os.Stderr, "===== BEGIN BUG REPORT =====")
	fmt.Fprintln(os.Stderr, "bad exception")
	fmt.Fprintln(os.Stderr, "===== END BUG REPORT =====")
}

func run(cmd *cobra.Command, _ []string) error {
	if listNarrator {
		fmt.Println("Zundamon")
		fmt.Println("Tohoku Kiritan")
		return nil
	}

	if cmd.Flags().Changed("list-emotion") {
		if strings.TrimSpace(listEmotion) == "" {
			fmt.Println("error parsing options: Option 'list-emotion' is missing an argument")
			return nil
		}
		for _, emotion := range narratorEmotions[listEmotion] {
			fmt.Println(emotion)
		}
		return nil
	}

	if sayText == "" && textFile == "" {
		fmt.Fprintln(os.Stderr, "Please specify text to say")
		os.Exit(1)
	}
	if textFile != "" {
		if _, err := os.Stat(textFile); err != nil {
			os.Exit(1)
		}
	}

	if narrator != "" {
		if _, ok := narratorEmotions[narrator]; !ok {
			printBug()
			os.Exit(1)
		}
		fmt.Println("Narrator: " + narrator)
	}

	if sayText != "" {
		fmt.Println("Speech Text: " + sayText)
	}
	if textFile != "" {
		abs, _ := filepath.Abs(textFile)
		fmt.Println("Speech File: " + abs)
	}

	out := outFile
	if out == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		out = filepath.Join(home, "output.wav")
	}

	// emulate synthesis latency
	time.Sleep(time.Second)

	if err := writeTone(out); err != nil {
		fmt.Fprintln(os.Stderr, "failed to output")
	}
	abs, _ := filepath.Abs(out)
	fmt.Println("Output: " + abs)

	// the real executable accepts out of range pitch and speed values
	if cmd.Flags().Changed("pitch") {
		fmt.Printf("Pitch: %d\n", pitch)
	}
	if cmd.Flags().Changed("speed") {
		fmt.Printf("Speed: %d\n", speed)
	}

	if emotionSpec != "" {
		echoEmotion()
	}
	return nil
}

// echoEmotion validates the requested emotions against the narrator's set
// and echoes them in sorted order, matching the real executable.
func echoEmotion() {
	emotion := make(map[string]string)
	for _, pair := range strings.Split(emotionSpec, ",") {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		emotion[name] = value
	}

	supported := narratorEmotions[narrator]
	anySupported := false
	for name := range emotion {
		for _, s := range supported {
			if name == s {
				anySupported = true
			}
		}
	}
	if !anySupported {
		printBug()
		os.Exit(1)
	}

	values := make([]string, 0, len(emotion))
	for name, weight := range emotion {
		values = append(values, name+","+weight)
	}
	sort.Strings(values)
	fmt.Println("Emotion: " + strings.Join(values, ","))
}

// writeTone renders a sine tone as 48kHz mono 16-bit PCM.
func writeTone(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)

	frames := int(toneDuration.Seconds() * sampleRate)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, frames),
	}
	for i := range buf.Data {
		sample := math.Sin(2 * math.Pi * toneHz * float64(i) / sampleRate)
		buf.Data[i] = int(sample * 0.25 * math.MaxInt16)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&sayText, "say", "s", "", "Text to say")
	rootCmd.Flags().StringVarP(&textFile, "text", "t", "", "Text file to say")
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "", "Path of output file")
	rootCmd.Flags().StringVarP(&narrator, "narrator", "n", "", "Name of voice, check --list-narrator")
	rootCmd.Flags().StringVarP(&emotionSpec, "emotion", "e", "", "Emotion expression, for example: happy=50,sad=50. Also check --list-emotion")
	rootCmd.Flags().IntVar(&speed, "speed", 0, "Speed (50 - 200)")
	rootCmd.Flags().IntVar(&pitch, "pitch", 0, "Pitch (-300 - 300)")
	rootCmd.Flags().BoolVar(&listNarrator, "list-narrator", false, "Print voice list")
	rootCmd.Flags().StringVar(&listEmotion, "list-emotion", "", "Print emotion list for given voice")
}
