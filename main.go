// Package main provides the entry point for the vpspeech CLI, a wrapper
// around the VOICEPEAK command line synthesizer that adds long-text
// splitting and gapless playback.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/k7t3/vpspeech/speech"
	"github.com/k7t3/vpspeech/vp"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	sayText      string
	textFile     string
	outFile      string
	narrator     string
	pitch        int
	speed        int
	emotionSpec  string
	volume       float64
	delayMS      int64
	chunkSize    int
	executable   string
	tempDir      string
	listNarrator bool
	listEmotion  string

	rootCmd = &cobra.Command{
		Use:   "vpspeech",
		Short: "Speak long text through the VOICEPEAK command line",
		Long: paragraph(
			fmt.Sprintf("\nSpeak arbitrarily long text through the %s command line synthesizer, with natural splitting and gapless playback.", keyword("VOICEPEAK")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// envConfig is runtime tuning read from the environment.
type envConfig struct {
	LogFile string `env:"VPSPEECH_LOGFILE"`
	Debug   bool   `env:"VPSPEECH_DEBUG"`
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	narrator = viper.GetString("narrator")
	pitch = viper.GetInt("pitch")
	speed = viper.GetInt("speed")
	emotionSpec = viper.GetString("emotion")
	volume = viper.GetFloat64("volume")
	delayMS = viper.GetInt64("delay-ms")
	chunkSize = viper.GetInt("chunk-size")
	executable = viper.GetString("executable")
	tempDir = viper.GetString("temp-dir")

	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %v", volume)
	}
	if chunkSize != 0 && chunkSize < speech.MinChunkSize {
		return fmt.Errorf("chunk size must be at least %d, got %d", speech.MinChunkSize, chunkSize)
	}
	if cmd.Flags().Changed("list-emotion") && strings.TrimSpace(listEmotion) == "" {
		return errors.New("narrator for --list-emotion is empty")
	}
	return nil
}

func resolveExecutable() (*vp.Executable, error) {
	if executable == "" {
		return vp.NewExecutable(), nil
	}
	return vp.NewExecutablePath(executable)
}

// parseEmotion parses "happy=50,sad=50" into a weight map.
func parseEmotion(spec string) (map[string]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	emotion := make(map[string]int)
	for _, pair := range strings.Split(spec, ",") {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("malformed emotion %q (want name=weight)", pair)
		}
		weight, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("malformed emotion weight %q: %w", pair, err)
		}
		emotion[strings.TrimSpace(name)] = weight
	}
	return emotion, nil
}

func execute(cmd *cobra.Command, _ []string) error {
	exe, err := resolveExecutable()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case listNarrator:
		return printList(cmd.OutOrStdout(), func() ([]string, error) {
			return vp.NewClient(exe).ListNarrators(ctx)
		})
	case listEmotion != "":
		return printList(cmd.OutOrStdout(), func() ([]string, error) {
			return vp.NewClient(exe).ListEmotions(ctx, listEmotion)
		})
	case outFile != "":
		return synthesizeToFile(ctx, exe)
	default:
		return speak(ctx, exe)
	}
}

func printList(w io.Writer, list func() ([]string, error)) error {
	items, err := list()
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Fprintln(w, item)
	}
	return nil
}

// synthesizeToFile runs a single synthesizer invocation writing the audio
// to --out, without playback. Both --say and --text may be supplied; the
// executable speaks the direct text in that case.
func synthesizeToFile(ctx context.Context, exe *vp.Executable) error {
	emotion, err := parseEmotion(emotionSpec)
	if err != nil {
		return err
	}

	builder := vp.NewProcessBuilder(exe).
		WithNarrator(narrator).
		WithSayText(sayText).
		WithTextFile(textFile).
		WithOutput(outFile).
		WithEmotion(emotion)
	if pitch != 0 {
		builder = builder.WithPitch(pitch)
	}
	if speed != 0 {
		builder = builder.WithSpeed(speed)
	}

	proc, err := builder.Build()
	if err != nil {
		return err
	}
	proc.SubscribeStdout(func(line string) { log.Info(line) })
	proc.SubscribeStderr(func(line string) { log.Error(line) })

	status, err := proc.Run(ctx)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("synthesizer exited with status %d", status)
	}
	return nil
}

func speak(ctx context.Context, exe *vp.Executable) error {
	text := sayText
	if text == "" && textFile != "" {
		b, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("unable to read text file: %w", err)
		}
		text = string(b)
	}
	if text == "" {
		return errors.New("nothing to speak: use --say or --text")
	}

	emotion, err := parseEmotion(emotionSpec)
	if err != nil {
		return err
	}

	builder := speech.NewBuilder(exe).
		WithText(text).
		WithNarrator(narrator).
		WithEmotion(emotion).
		WithChunkSize(chunkSize).
		WithDelay(time.Duration(delayMS) * time.Millisecond).
		WithVolume(volume).
		WithTempDir(tempDir)
	if pitch != 0 {
		builder = builder.WithPitch(pitch)
	}
	if speed != 0 {
		builder = builder.WithSpeed(speed)
	}

	runner, err := builder.Build()
	if err != nil {
		return err
	}
	runner.SetStderrSubscriber(func(line string) { log.Warn(line) })

	state := runner.Start()

	go func() {
		<-ctx.Done()
		state.RequestStop()
	}()

	if err := state.Wait(context.Background()); err != nil {
		if errors.Is(err, speech.ErrCancelled) {
			log.Info("speech cancelled", "spoken", state.Position(), "of", state.ChunkCount())
			return nil
		}
		return err
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&sayText, "say", "s", "", "text to speak")
	rootCmd.Flags().StringVarP(&textFile, "text", "t", "", "file whose contents to speak")
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "", "synthesize to an audio file instead of playing")
	rootCmd.Flags().StringVarP(&narrator, "narrator", "n", "", "voice profile name (see --list-narrator)")
	rootCmd.Flags().IntVar(&pitch, "pitch", 0, fmt.Sprintf("pitch adjustment (%d to %d)", vp.MinPitch, vp.MaxPitch))
	rootCmd.Flags().IntVar(&speed, "speed", 0, fmt.Sprintf("speaking speed (%d to %d)", vp.MinSpeed, vp.MaxSpeed))
	rootCmd.Flags().StringVarP(&emotionSpec, "emotion", "e", "", "emotion weights, e.g. happy=50,sad=50")
	rootCmd.Flags().Float64Var(&volume, "volume", speech.DefaultVolume, "playback volume (0.0 to 1.0)")
	rootCmd.Flags().Int64Var(&delayMS, "delay-ms", 0, "delay before the first playback in milliseconds")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", speech.DefaultChunkSize, "maximum characters per synthesizer invocation")
	rootCmd.Flags().StringVar(&executable, "executable", "", "path to the voicepeak executable")
	rootCmd.Flags().StringVar(&tempDir, "temp-dir", "", "directory for temporary audio artifacts")
	rootCmd.Flags().BoolVar(&listNarrator, "list-narrator", false, "print installed voice profiles")
	rootCmd.Flags().StringVar(&listEmotion, "list-emotion", "", "print emotion names for the given narrator")

	// Config bindings
	_ = viper.BindPFlag("narrator", rootCmd.Flags().Lookup("narrator"))
	_ = viper.BindPFlag("pitch", rootCmd.Flags().Lookup("pitch"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("emotion", rootCmd.Flags().Lookup("emotion"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("delay-ms", rootCmd.Flags().Lookup("delay-ms"))
	_ = viper.BindPFlag("chunk-size", rootCmd.Flags().Lookup("chunk-size"))
	_ = viper.BindPFlag("executable", rootCmd.Flags().Lookup("executable"))
	_ = viper.BindPFlag("temp-dir", rootCmd.Flags().Lookup("temp-dir"))

	viper.SetDefault("volume", speech.DefaultVolume)
	viper.SetDefault("chunk-size", speech.DefaultChunkSize)

	rootCmd.AddCommand(configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "vpspeech")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "vpspeech")}, dirs...)
	}

	if c := os.Getenv("VPSPEECH_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("vpspeech")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("vpspeech")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "vpspeech.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

// setupLog routes logging to the file named by VPSPEECH_LOGFILE, if any,
// and raises the level when VPSPEECH_DEBUG is set.
func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[envConfig]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		log.SetReportTimestamp(true)
		return f.Close, nil
	}

	log.SetOutput(os.Stderr)
	return func() error { return nil }, nil
}
