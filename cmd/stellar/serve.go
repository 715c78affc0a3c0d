package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/edumarques81/stellar-offline-player/internal/audio"
	"github.com/edumarques81/stellar-offline-player/internal/config"
	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
	"github.com/edumarques81/stellar-offline-player/internal/infra/env"
	"github.com/edumarques81/stellar-offline-player/internal/infra/history"
	"github.com/edumarques81/stellar-offline-player/internal/infra/media"
	"github.com/edumarques81/stellar-offline-player/internal/infra/mpd"
	"github.com/edumarques81/stellar-offline-player/internal/infra/network"
	"github.com/edumarques81/stellar-offline-player/internal/infra/relay"
	"github.com/edumarques81/stellar-offline-player/internal/infra/sim"
	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
	"github.com/edumarques81/stellar-offline-player/internal/transport/socketio"
	"github.com/edumarques81/stellar-offline-player/internal/transport/ws"
	"github.com/edumarques81/stellar-offline-player/internal/version"
)

const shutdownTimeout = 5 * time.Second

var serveFlags struct {
	listen   string
	decoder  string
	logLevel string
	logFile  string
	static   string
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the player session and its servers",
	Long: `Run the player session and serve it over HTTP.

Endpoints:
- /socket.io/  web UI transport
- /ws          WebSocket transport for native clients
- /api/v1/*    REST state, queue, history and commands
- /health      liveness

The process exits when it receives SIGINT/SIGTERM or when the session
shuts down, either through the shutdown command or the idle timer.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.decoder, "decoder", "", "Playback backend: mpd or sim (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveFlags.logFile, "log-file", "", "Log file path (default: stderr)")
	serveCmd.Flags().StringVar(&serveFlags.static, "static", "", "Directory to serve the web UI from")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Logger = setupLogger(cfg.Log.File, cfg.Log.Level)
	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := store.NewSQLite(cfg.Store.Path)
	if err := backend.Open(); err != nil {
		return err
	}
	defer backend.Close()

	fs := afero.NewOsFs()
	library := media.New(fs, cfg.MusicDir, cfg.CacheDir())
	hist := history.New(fs, cfg.HistoryPath())

	netMon := network.NewMonitor(network.NewProbe(fs), 0)
	go netMon.Run(ctx)

	focus, phone, noisy := env.NewFocus(), env.NewPhone(), env.NewNoisy()

	// The host and the Socket.IO server are created after the collaborators
	// that call back into them.
	var hostRef atomic.Pointer[session.Host]
	var sioRef atomic.Pointer[socketio.Server]

	var (
		decoders engine.DecoderFactory
		ping     func() error
		mpdRun   func(context.Context) error
	)
	switch cfg.Decoder {
	case config.DecoderMPD:
		client := mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		if err := client.Connect(); err != nil {
			return fmt.Errorf("failed to connect to MPD: %w", err)
		}
		defer client.Close()
		if err := client.Ping(); err != nil {
			return fmt.Errorf("MPD ping failed: %w", err)
		}
		log.Info().Msg("MPD connection verified")

		factory := mpd.NewFactory(client, func(format string) {
			if h := hostRef.Load(); h != nil {
				h.Audio().UpdateFormat(format)
			}
		})
		decoders, ping, mpdRun = factory, client.Ping, factory.Run
	default:
		decoders = sim.NewFactory()
	}

	h, err := session.New(ctx, session.Options{
		PlayerID: cfg.PlayerID,
		Backend:  backend,
		Decoders: decoders,
		Resolver: library,
		Cache:    library,
		Focus:    focus,
		Phone:    phone,
		Noisy:    noisy,
		Network:  netMon,
		Notifier: session.LogNotifier{},
		History:  hist,
		OnAudioStatus: func(status audio.Status) {
			if s := sioRef.Load(); s != nil {
				s.BroadcastAudioStatus(status)
			}
		},
		IdleMinutes: cfg.IdleMinutes,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer h.Shutdown()
	hostRef.Store(h)

	if mpdRun != nil {
		go func() {
			if err := mpdRun(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("MPD watcher stopped")
			}
		}()
	}

	sio, err := socketio.NewServer(h, socketio.Options{
		MaxExternal: cfg.SocketIO.MaxExternal,
		PlayerID:    cfg.PlayerID,
		Fs:          fs,
		Network:     netMon.Status,
	})
	if err != nil {
		return fmt.Errorf("failed to create Socket.io server: %w", err)
	}
	defer sio.Close()
	sioRef.Store(sio)

	unwatch := netMon.Subscribe(func(engine.Network) {
		sio.BroadcastNetworkStatus(netMon.Status())
	})
	defer unwatch()

	hub := ws.NewHub()
	go hub.Run(ctx)
	defer h.Subscribe(hub)()

	if cfg.Redis.URL != "" {
		stopRelay, err := startRelay(ctx, h, cfg.Redis)
		if err != nil {
			return err
		}
		defer stopRelay()
	}

	router := newRouter(api{
		host:      h,
		history:   hist,
		network:   netMon,
		focus:     focus,
		phone:     phone,
		noisy:     noisy,
		ping:      ping,
		ws:        ws.NewServer(hub, h, cfg.AllowedOrigins...),
		socketIO:  sio,
		staticDir: cfg.StaticDir,
	})

	server := &http.Server{
		Addr:        cfg.Listen,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	case <-h.Done():
		log.Info().Msg("Session ended, shutting down...")
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	// Shut the session down first so clients see the shutdown event.
	h.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
	return nil
}

// startRelay publishes session events to Redis and runs commands received
// from it.
func startRelay(ctx context.Context, h *session.Host, cfg config.RedisConfig) (func(), error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	r := relay.New(rdb, cfg.Channel)
	unsubscribe := h.Subscribe(r)
	go r.Run(ctx)
	go func() {
		if err := r.Listen(ctx, h); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Redis command listener stopped")
		}
	}()

	return func() {
		unsubscribe()
		rdb.Close()
	}, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = serveFlags.listen
	}
	if flags.Changed("decoder") {
		cfg.Decoder = serveFlags.decoder
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = serveFlags.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = serveFlags.logFile
	}
	if flags.Changed("static") {
		cfg.StaticDir = serveFlags.static
	}
}

func printBanner(cfg *config.Config) {
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", version.GetInfo().String())
	log.Info().Msg("  Offline Music Player")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("player", cfg.PlayerID).
		Str("listen", cfg.Listen).
		Str("decoder", cfg.Decoder).
		Str("store", cfg.Store.Path).
		Int("idle_minutes", cfg.IdleMinutes).
		Bool("relay", cfg.Redis.URL != "").
		Msg("Configuration")
}
