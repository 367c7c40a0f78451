// FoodLens: live food detection with nutrition and recipe overlays.
//
// Usage:
//
//	foodlens [-config foodlens.yaml] [-user id] [-camera] [-voice] [-verbose] [-quiet] [-headless]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/foodlens/internal/camera"
	"github.com/hammamikhairi/foodlens/internal/capture"
	"github.com/hammamikhairi/foodlens/internal/config"
	"github.com/hammamikhairi/foodlens/internal/conversation"
	"github.com/hammamikhairi/foodlens/internal/detect"
	"github.com/hammamikhairi/foodlens/internal/dispatch"
	"github.com/hammamikhairi/foodlens/internal/display"
	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/emitter"
	"github.com/hammamikhairi/foodlens/internal/enrich"
	"github.com/hammamikhairi/foodlens/internal/fusion"
	"github.com/hammamikhairi/foodlens/internal/gpt"
	"github.com/hammamikhairi/foodlens/internal/httpserver"
	"github.com/hammamikhairi/foodlens/internal/layout"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/mailbox"
	"github.com/hammamikhairi/foodlens/internal/profile"
	"github.com/hammamikhairi/foodlens/internal/render"
	"github.com/hammamikhairi/foodlens/internal/session"
	"github.com/hammamikhairi/foodlens/internal/speech"
	"github.com/hammamikhairi/foodlens/internal/storage"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", config.DefaultPath, "YAML configuration file (optional)")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".foodlens-logs/foodlens.log", "file to write logs to (use \"stderr\" to log to console)")
	userID := flag.String("user", "", "load this user profile at startup")
	useCamera := flag.Bool("camera", false, "grab frames from the local webcam (requires the gocv build tag)")
	voice := flag.Bool("voice", false, "enable voice commands via local Whisper STT")
	headless := flag.Bool("headless", false, "run without the terminal UI")
	flag.Parse()

	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Logs go to a file by default so the terminal UI stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// The whisper transcriber and paho log through the standard logger.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if *useCamera {
		cfg.Camera.Enabled = true
	}
	if *voice {
		cfg.Speech.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Core state and mailboxes.
	storeOpts := []fusion.Option{fusion.WithFields(cfg.Layout.Fields...)}
	if cfg.Detect.ProximityMatching {
		storeOpts = append(storeOpts, fusion.WithProximityMatching())
	}
	sess := session.New(log.With("session", "main"), session.WithStore(fusion.New(storeOpts...)))
	frames := mailbox.NewFrames()
	transcripts := mailbox.New[string]()

	// Remote services.
	detector := detect.NewClient(cfg.Detect.URL, log, detect.WithHTTPTimeout(cfg.Capture.RequestTimeout))

	if cfg.Enrich.Endpoint == "" || cfg.Enrich.Key == "" {
		log.Warn("enrichment will fail: set GPT_CHAT_ENDPOINT and GPT_CHAT_KEY to enable it")
	}
	gptClient := gpt.NewClient(cfg.Enrich.Endpoint, cfg.Enrich.Key, log,
		gpt.WithModel(cfg.Enrich.Model),
		gpt.WithAuthStyle(gpt.ParseAuthStyle(cfg.Enrich.AuthStyle)),
		gpt.WithHTTPTimeout(cfg.Enrich.Timeout),
	)
	agent := gpt.NewAgent(gptClient, log, gpt.WithRecipeCount(cfg.Enrich.RecipeCount))
	pipeline := enrich.New(sess, agent, log, enrich.WithTimeout(cfg.Enrich.Timeout))

	profiles, err := openProfiles(cfg.Profile, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Presentation.
	hub := httpserver.NewHub(log)
	renderOpts := []render.Option{
		render.WithMode(render.ParseMode(cfg.Layout.Mode)),
		render.WithLayout(layout.Options{
			RingMargin:       cfg.Layout.RingMargin,
			InfoOffset:       cfg.Layout.InfoOffset,
			LabelStartOffset: cfg.Layout.LabelStartOffset,
			AvoidOverlap:     cfg.Layout.AvoidOverlap,
		}),
		render.WithAngles(cfg.Layout.NutritionAngles),
		render.WithFields(cfg.Layout.Fields...),
		render.WithSink(hub),
	}

	var bus *emitter.MQTTEmitter
	if cfg.MQTT.Broker != "" {
		bus = emitter.NewMQTTEmitter(emitter.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, log)
		if err := bus.Connect(ctx); err != nil {
			log.Error("mqtt disabled: %v", err)
		} else {
			renderOpts = append(renderOpts, render.WithSink(bus))
			defer bus.Close()
		}
	}
	renderer := render.New(log, renderOpts...)

	var ui *display.UI
	if !*headless {
		ui = display.NewUI(renderer)
	}

	// Voice input and earcons.
	var ear *speech.Ear
	if cfg.Speech.Enabled {
		if _, err := os.Stat(cfg.Speech.WhisperModel); err != nil {
			fmt.Fprintf(os.Stderr, "error: whisper model not found at %s\n", cfg.Speech.WhisperModel)
			os.Exit(1)
		}
		ear = speech.NewEar(cfg.Speech.WhisperBin, cfg.Speech.WhisperModel, transcripts, log)
	}

	var earcon domain.Earcon = speech.NewNoOp(log)
	var tones *speech.Earcon
	if cfg.Speech.Earcons {
		player, err := speech.NewPlayer(log)
		if err != nil {
			log.Error("audio player init failed, earcons disabled: %v", err)
		} else {
			var opts []speech.EarconOption
			if ear != nil {
				opts = append(opts, speech.WithMuter(ear))
			}
			tones = speech.NewEarcon(player, log, opts...)
			earcon = tones
		}
	}

	grammar, err := conversation.NewGrammar(log, cfg.GrammarCommands()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var printFn conversation.PrintFunc
	if ui != nil {
		printFn = ui.Printf
	}
	notifier := conversation.NewCLINotifier(log, printFn)

	dispatcher := dispatch.New(sess, grammar, pipeline, profiles, notifier, log,
		dispatch.WithEarcon(earcon),
		dispatch.WithProfileTimeout(cfg.Profile.Timeout),
	)

	scheduler := capture.New(sess, frames, detector, log,
		capture.WithInterval(cfg.Capture.Interval),
		capture.WithRequestTimeout(cfg.Capture.RequestTimeout),
		capture.WithWatchdog(
			capture.WithCheckInterval(cfg.Capture.WatchdogCheck),
			capture.WithWarnAfter(cfg.Capture.WarnAfter),
			capture.WithReleaseAfter(cfg.Capture.ReleaseAfter),
		),
	)

	server := httpserver.New(httpserver.Deps{
		Session:     sess,
		Frames:      frames,
		Transcripts: transcripts,
		Dispatcher:  dispatcher,
		Renderer:    renderer,
		Hub:         hub,
		Log:         log,
	})

	// Start everything.
	go renderer.Run(ctx, sess)
	go dispatcher.Run(ctx, transcripts)
	scheduler.Start(ctx)

	go func() {
		if err := server.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http: %v", err)
			cancel()
		}
	}()

	if cfg.Camera.Enabled {
		startCamera(ctx, cfg.Camera, frames, log)
	}
	if ear != nil {
		go ear.Run(ctx)
		log.Info("voice input enabled (bin=%s, model=%s)", cfg.Speech.WhisperBin, cfg.Speech.WhisperModel)
	}

	if *userID != "" {
		if _, err := dispatcher.LoadProfile(ctx, *userID); err != nil {
			log.Error("loading user %s: %v", *userID, err)
		}
	}

	if ui == nil {
		log.Info("running headless on %s", cfg.HTTP.Addr)
		<-ctx.Done()
	} else {
		app := &cliApp{
			session:     sess,
			grammar:     grammar,
			transcripts: transcripts,
			renderer:    renderer,
			ui:          ui,
			log:         log,
			addr:        cfg.HTTP.Addr,
		}

		fmt.Println(display.RenderBanner())
		fmt.Println(display.BannerStyle.Render(fmt.Sprintf("  API and overlay socket on %s", cfg.HTTP.Addr)))
		if ear != nil {
			fmt.Println(display.BannerStyle.Render("  Voz activada: di \"Empieza la detección\" o escribe un comando."))
		}
		fmt.Println(display.BannerStyle.Render("  Escribe 'ayuda' para ver los comandos, 'salir' para terminar."))
		fmt.Println()

		go func() {
			ui.WaitReady()
			app.run(ctx)
			ui.Quit()
		}()

		// Bubble Tea owns the terminal until quit.
		if err := ui.Run(); err != nil {
			log.Error("display: %v", err)
		}
	}
	cancel()

	// Drain in dependency order.
	scheduler.Stop()
	scheduler.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown: %v", err)
	}
	pipeline.Wait()
	if tones != nil {
		tones.Wait()
	}
	log.Info("bye")
}

// openProfiles builds the configured profile backend.
func openProfiles(cfg config.ProfileConfig, log *logger.Logger) (domain.ProfileStore, error) {
	switch cfg.Backend {
	case "rest":
		log.Info("profiles: rest backend at %s", cfg.URL)
		return profile.NewRESTStore(cfg.URL, log,
			profile.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		), nil
	case "supabase":
		log.Info("profiles: supabase backend at %s", cfg.URL)
		return profile.NewSupabaseStore(cfg.URL, cfg.Key, log)
	default:
		log.Info("profiles: in-memory backend")
		return storage.NewMemoryStore(log), nil
	}
}

// startCamera grabs webcam frames into frames until ctx is cancelled.
// Without the gocv build tag it only logs that the camera is unavailable.
func startCamera(ctx context.Context, cfg config.CameraConfig, frames *mailbox.Frames, log *logger.Logger) {
	source, err := camera.Open(cfg.Device)
	if err != nil {
		log.Error("camera %d: %v", cfg.Device, err)
		return
	}
	cam := camera.New(source, frames, log, camera.WithInterval(cfg.Interval))
	go func() {
		if err := cam.Run(ctx); err != nil {
			log.Error("camera stopped: %v", err)
		}
	}()
}

// ── CLI app ──────────────────────────────────────────────────────

// cliApp routes typed lines. Anything that is not a local command is
// treated as an utterance, exactly as if it had been spoken.
type cliApp struct {
	session     *session.Session
	grammar     *conversation.Grammar
	transcripts *mailbox.Latest[string]
	renderer    *render.Renderer
	ui          *display.UI
	log         *logger.Logger
	addr        string
}

func (a *cliApp) run(ctx context.Context) {
	input := a.ui.InputChan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.ui.QuitChan():
			return
		case line, ok := <-input:
			if !ok {
				return
			}
			if !a.handle(strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// handle returns false when the user asked to quit.
func (a *cliApp) handle(line string) bool {
	if line == "" {
		return true
	}
	switch strings.ToLower(line) {
	case "salir", "quit", "exit", "q":
		return false
	case "ayuda", "help", "?":
		a.showHelp()
	case "estado", "status":
		a.status()
	default:
		a.log.Debug("typed utterance: %q", line)
		a.transcripts.Put(line)
	}
	return true
}

func (a *cliApp) showHelp() {
	a.ui.Println("")
	a.ui.Println(display.BannerStyle.Render("  Comandos de voz (también se pueden escribir):"))
	for _, c := range a.grammar.Commands() {
		a.ui.PrintHint(fmt.Sprintf("%-36s %s", c.Template, c.Intent))
	}
	a.ui.Println("")
	a.ui.PrintHint("estado    muestra el estado de la sesión")
	a.ui.PrintHint("salir     termina el programa")
	a.ui.Println("")
}

func (a *cliApp) status() {
	snap := a.session.Snapshot()
	f := a.renderer.Latest()

	a.ui.Println("")
	a.ui.PrintHint(fmt.Sprintf("sesión      %s (v%d)", snap.SessionID, snap.Version))
	a.ui.PrintHint(fmt.Sprintf("detección   %t", snap.Flags.DetectionActive))
	a.ui.PrintHint(fmt.Sprintf("alimentos   %s", strings.Join(snap.Names(), ", ")))
	if f.Menu.Status != "" {
		a.ui.PrintHint(fmt.Sprintf("info        %s", f.Menu.Status))
	}
	if f.Menu.User != "" {
		a.ui.PrintHint(fmt.Sprintf("usuario     %s", f.Menu.User))
	}
	a.ui.PrintHint(fmt.Sprintf("api         %s", a.addr))
	a.ui.Println("")
}
