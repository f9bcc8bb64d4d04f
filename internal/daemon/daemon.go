package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/capturd/capturd/internal/config"
	"github.com/capturd/capturd/internal/logger"
	"github.com/capturd/capturd/internal/observability"
	"github.com/capturd/capturd/pkg/api"
	"github.com/capturd/capturd/pkg/recording"
	"github.com/capturd/capturd/pkg/stream"
)

// Daemon wires the recording pipeline together: store, lifecycle
// controller, both ingest adapters, retention sweeper and directory
// watcher, all behind one HTTP listener.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	store      *recording.Store
	controller *recording.Controller
	retention  *recording.Retention
	watcher    *recording.DirWatcher

	streamHandler *stream.Handler
	apiServer     *api.Server

	startTime time.Time
	running   bool
	mu        sync.RWMutex
	wg        sync.WaitGroup
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
	}

	if err := d.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize daemon: %w", err)
	}

	return d, nil
}

// initialize builds components in dependency order.
func (d *Daemon) initialize() error {
	store, err := recording.NewStore(d.config.Recordings.Dir)
	if err != nil {
		return fmt.Errorf("failed to create recording store: %w", err)
	}
	d.store = store
	d.logger.Info().Str("dir", store.Dir()).Msg("Recording store initialized")

	controller, err := recording.NewController(recording.ControllerConfig{
		Store:       store,
		StopTimeout: time.Duration(d.config.Ingest.StopTimeoutSeconds) * time.Second,
		Logger:      d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	d.controller = controller
	d.logger.Info().Msg("Lifecycle controller initialized")

	if d.config.Recordings.Retention.Enabled {
		retention, err := recording.NewRetention(recording.RetentionConfig{
			Controller: controller,
			MaxAge:     time.Duration(d.config.Recordings.Retention.MaxAgeHours) * time.Hour,
			Schedule:   d.config.Recordings.Retention.Schedule,
			Logger:     d.logger.GetZerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create retention sweeper: %w", err)
		}
		d.retention = retention
	}

	if d.config.Recordings.Watcher.Enabled {
		watcher, err := recording.NewDirWatcher(store, d.logger.GetZerolog())
		if err != nil {
			return fmt.Errorf("failed to create directory watcher: %w", err)
		}
		d.watcher = watcher
	}

	streamHandler, err := stream.NewHandler(controller, d.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create stream handler: %w", err)
	}
	d.streamHandler = streamHandler
	d.logger.Info().Msg("Streaming adapter initialized")

	apiServer, err := api.NewServer(api.ServerOptions{
		Host:               d.config.Server.Host,
		Port:               d.config.Server.Port,
		MaxChunkSize:       int64(d.config.Ingest.MaxChunkSizeMB) << 20,
		RateLimitPerMinute: d.config.Ingest.RateLimitPerMinute,
	}, controller, streamHandler, d.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	d.apiServer = apiServer
	d.logger.Info().Msg("API server initialized")

	return nil
}

// Start launches the daemon's services without blocking.
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			return fmt.Errorf("failed to start directory watcher: %w", err)
		}
	}

	if d.retention != nil {
		if err := d.retention.Start(); err != nil {
			return fmt.Errorf("failed to start retention sweeper: %w", err)
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.apiServer.Start(); err != nil {
			d.logger.Error().Err(err).Msg("API server error")
		}
	}()

	d.startTime = time.Now()
	d.running = true

	d.logger.Info().
		Str("host", d.config.Server.Host).
		Int("port", d.config.Server.Port).
		Msg("Daemon started")

	return nil
}

// Stop shuts the daemon down: stop accepting requests, close streaming
// clients, then force-close any writer still open so no recording leaks a
// file handle past process exit.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("daemon is not running")
	}

	d.logger.Info().Msg("Shutting down daemon")

	if err := d.apiServer.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop API server")
	}

	d.streamHandler.Registry().CloseAll()
	d.controller.CloseAll()

	if d.retention != nil {
		d.retention.Stop()
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}

	d.wg.Wait()
	d.running = false

	d.logger.Info().
		Dur("uptime", time.Since(d.startTime)).
		Msg("Daemon stopped")

	return nil
}

// Run starts the daemon and blocks until SIGINT or SIGTERM.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	d.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	return d.Stop()
}

// IsRunning reports whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.running
}

// Controller exposes the lifecycle controller, mainly for tests.
func (d *Daemon) Controller() *recording.Controller {
	return d.controller
}
