package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"voicebatch/internal/adapters/elevenlabs"
	"voicebatch/internal/adapters/localstorage"
	"voicebatch/internal/config"
	"voicebatch/internal/core/domain"
	"voicebatch/internal/service"
	transporthttp "voicebatch/internal/transport/http"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	if len(os.Args) > 1 && os.Args[1] == "configure" {
		runConfigure()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Parse flags
	apiKey := flag.String("api-key", "", "ElevenLabs API key (overrides env and config)")
	voiceID := flag.String("voice", cfg.DefaultVoiceID, "Target voice ID (interactive selection when empty)")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Directory for converted files")
	noOverwrite := flag.Bool("no-overwrite", false, "Suffix output names instead of overwriting existing files")
	stability := flag.Float64("stability", cfg.Settings.Stability, "Voice stability (0-1)")
	similarity := flag.Float64("similarity", cfg.Settings.SimilarityBoost, "Similarity boost (0-1)")
	style := flag.Float64("style", cfg.Settings.Style, "Style exaggeration (0-1)")
	speakerBoost := flag.Bool("speaker-boost", cfg.Settings.SpeakerBoost, "Enable speaker boost")
	denoise := flag.Bool("denoise", cfg.Settings.RemoveBackgroundNoise, "Remove background noise before conversion")
	serveAddr := flag.String("serve", "", "Run the local control API on this address instead of a one-shot batch")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 && *serveAddr == "" {
		fmt.Println("Usage: voicebatch-cli [flags] <audio-file> [audio-file...]")
		fmt.Println("       voicebatch-cli -serve 127.0.0.1:8090")
		fmt.Println("       voicebatch-cli configure")
		fmt.Println("\nExample:")
		fmt.Println("  voicebatch-cli -voice 21m00Tcm4TlvDq8ikWAM speech.wav interview.mp3")
		os.Exit(1)
	}

	key, err := config.ResolveAPIKey(*apiKey, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	baseLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer baseLogger.Sync()
	logger := baseLogger.Sugar()

	settings := domain.ConversionSettings{
		Stability:             *stability,
		SimilarityBoost:       *similarity,
		Style:                 *style,
		SpeakerBoost:          *speakerBoost,
		RemoveBackgroundNoise: *denoise,
		ModelID:               cfg.Settings.ModelID,
		OutputFormat:          cfg.Settings.OutputFormat,
	}
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	// Initialize adapters
	client, err := elevenlabs.NewClient(key)
	if err != nil {
		log.Fatalf("Failed to initialize ElevenLabs client: %v", err)
	}
	store := localstorage.NewStore(!*noOverwrite)
	orchestrator := service.NewOrchestrator(client, store, logger)

	// Setup context with cancellation on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received interrupt, finishing current file then stopping")
		cancel()
	}()

	if *serveAddr != "" {
		serve(ctx, *serveAddr, client, orchestrator, *outputDir, settings, logger)
		return
	}

	voice, err := resolveVoice(ctx, client, *voiceID)
	if err != nil {
		log.Fatalf("Failed to resolve voice: %v", err)
	}

	session := domain.NewBatchSession(files, voice, *outputDir, settings)
	summary, err := orchestrator.Run(ctx, session, printProgress)
	if err != nil {
		log.Fatalf("Batch failed to start: %v", err)
	}

	printSummary(session, summary)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// resolveVoice validates the requested voice against the catalog, or asks
// the user to pick one when no voice was given.
func resolveVoice(ctx context.Context, client *elevenlabs.Client, voiceID string) (domain.VoiceDescriptor, error) {
	voices, err := client.Voices(ctx)
	if err != nil {
		return domain.VoiceDescriptor{}, err
	}
	if len(voices) == 0 {
		return domain.VoiceDescriptor{}, fmt.Errorf("no voices available for this account")
	}

	if voiceID != "" {
		for _, v := range voices {
			if v.ID == voiceID {
				return v, nil
			}
		}
		return domain.VoiceDescriptor{}, fmt.Errorf("unknown voice id: %s", voiceID)
	}

	prompt := promptui.Select{
		Label: "Select target voice",
		Items: voices,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Active:   "> {{ .Name }}",
			Inactive: "  {{ .Name }}",
			Selected: "Voice: {{ .Name }}",
			Details:  "ID: {{ .ID }}\n{{ .Description }}",
		},
	}
	index, _, err := prompt.Run()
	if err != nil {
		return domain.VoiceDescriptor{}, fmt.Errorf("voice selection aborted: %w", err)
	}
	return voices[index], nil
}

// printProgress reports each job transition on stdout.
func printProgress(p domain.Progress) {
	switch p.Job.Status {
	case domain.JobStatusInProgress:
		fmt.Printf("[%d/%d] converting %s...\n", p.Index+1, p.Total, p.Job.SourcePath)
	case domain.JobStatusSucceeded:
		fmt.Printf("[%d/%d] ok  %s (%s)\n", p.Index+1, p.Total, p.Job.OutputPath,
			humanize.Bytes(uint64(p.Job.OutputBytes)))
	case domain.JobStatusFailed:
		fmt.Printf("[%d/%d] FAILED %s: %s\n", p.Index+1, p.Total, p.Job.SourcePath, p.Job.ErrorMessage)
	case domain.JobStatusCancelled:
		fmt.Printf("[%d/%d] cancelled %s\n", p.Index+1, p.Total, p.Job.SourcePath)
	}
}

func printSummary(session *domain.BatchSession, summary domain.Summary) {
	fmt.Println("\n=== Batch Summary ===")
	fmt.Printf("Session:   %s\n", session.ID)
	fmt.Printf("Voice:     %s\n", session.Voice.Name)
	fmt.Printf("Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("Failed:    %d\n", summary.Failed)
	if summary.Cancelled > 0 {
		fmt.Printf("Cancelled: %d\n", summary.Cancelled)
	}
	fmt.Printf("Written:   %s to %s\n", humanize.Bytes(uint64(summary.TotalBytes)), session.OutputDir)
}

// serve runs the local HTTP control API until the context is cancelled.
func serve(ctx context.Context, addr string, client *elevenlabs.Client, orchestrator *service.Orchestrator, outputDir string, settings domain.ConversionSettings, logger *zap.SugaredLogger) {
	runner := service.NewRunner(orchestrator, service.NewEventBus(500))
	handler := transporthttp.NewHandler(client, runner, outputDir, settings, logger)

	server := &http.Server{
		Addr:    addr,
		Handler: transporthttp.NewRouter(handler),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Infow("control api listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// runConfigure interactively stores the API key and preferences, verifying
// the key against the API before saving.
func runConfigure() {
	fmt.Println("voicebatch configuration")
	fmt.Println("------------------------")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load existing config: %v", err)
	}

	keyPrompt := promptui.Prompt{
		Label: "ElevenLabs API key",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("api key must not be empty")
			}
			return nil
		},
	}
	key, err := keyPrompt.Run()
	if err != nil {
		log.Fatalf("Configuration aborted: %v", err)
	}

	dirPrompt := promptui.Prompt{
		Label:   "Output directory",
		Default: cfg.OutputDir,
	}
	outputDir, err := dirPrompt.Run()
	if err != nil {
		log.Fatalf("Configuration aborted: %v", err)
	}

	fmt.Println("Verifying API key...")
	client, err := elevenlabs.NewClient(key)
	if err != nil {
		log.Fatalf("Invalid key: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		log.Fatalf("Key verification failed: %v", err)
	}

	cfg.APIKey = key
	cfg.OutputDir = outputDir
	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}

	path, _ := config.Path()
	fmt.Printf("Configuration saved to %s\n", path)
}
