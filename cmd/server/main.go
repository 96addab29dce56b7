package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polyform-sync/internal/config"
	"polyform-sync/internal/handler"
	"polyform-sync/internal/logger"
	"polyform-sync/internal/middleware"
	"polyform-sync/internal/repository"
	"polyform-sync/internal/repository/postgres"
	"polyform-sync/internal/service"
	"polyform-sync/internal/translation"
	"polyform-sync/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"golang.org/x/exp/slog"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.WithLevel(cfg.Server.Env, cfg.Logging.Level)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", logger.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.Close()

	translator, err := newTranslator(ctx, cfg, repos, log)
	if err != nil {
		return err
	}

	hubOpts := websocket.Options{
		MaxConnPerSpace: cfg.WebSocket.MaxConnPerSpace,
		WriteWait:       cfg.WebSocket.WriteWait,
		PongWait:        cfg.WebSocket.PongWait,
		PingPeriod:      cfg.WebSocket.PingPeriod,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
	}
	if cfg.RateLimit.Enabled {
		hubOpts.MessagesPerSecond = cfg.RateLimit.MessagesPerSecond
		hubOpts.Burst = cfg.RateLimit.Burst
	}
	hub := websocket.NewManager(hubOpts, log)
	hub.SetMessageHandler(handler.NewWebSocketMessageHandler(service.NewRoomService(hub, log)))
	go hub.Run()
	defer hub.Stop()

	spaceService := service.NewSpaceService(repos.Spaces, repos.Blocks, repos.ShareLinks, cfg.Ticket.Secret, cfg.Ticket.TTL, log)
	blockService := service.NewBlockService(repos.Blocks, log)
	shareService := service.NewShareService(repos.Spaces, repos.ShareLinks, cfg.Server.AppURL)
	snapshotService := service.NewSnapshotService(repos.Spaces, repos.Blocks, repos.Snapshots, cfg.Server.AppURL)

	spaceHandler := handler.NewSpaceHandler(spaceService)
	blockHandler := handler.NewBlockHandler(blockService)
	shareHandler := handler.NewShareHandler(shareService, snapshotService)
	translateHandler := handler.NewTranslateHandler(translator)
	localizeHandler := handler.NewLocalizeHandler(translator)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.Ticket.Secret, handler.UpgradeOptions{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
	}, log)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/spaces", spaceHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/spaces", spaceHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/spaces/{id}", spaceHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/spaces/{id}", spaceHandler.Update).Methods(http.MethodPatch)
	api.HandleFunc("/spaces/{id}", spaceHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/spaces/{id}/share", shareHandler.CreateLink).Methods(http.MethodPost)
	api.HandleFunc("/spaces/{id}/snapshot", shareHandler.CreateSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/snapshots/{id}", shareHandler.GetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/translate", translateHandler.Translate).Methods(http.MethodPost)
	api.HandleFunc("/ui-localize", localizeHandler.Localize).Methods(http.MethodPost)
	api.HandleFunc("/languages", handler.Languages).Methods(http.MethodGet)

	requireEdit := middleware.TicketMiddleware(cfg.Ticket.Secret, true)
	api.Handle("/spaces/{id}/blocks", requireEdit(http.HandlerFunc(blockHandler.Patch))).Methods(http.MethodPatch)

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	var h http.Handler = r
	h = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)(h)
	h = middleware.LoggerMiddleware(log)(h)
	h = middleware.Recovery(log)(h)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     h,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting polyform sync server",
			slog.String("addr", addr),
			slog.String("env", cfg.Server.Env),
			slog.String("store", cfg.Store.Driver),
			slog.String("translation", cfg.Translation.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repository.Repositories, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.Postgres.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("connected to postgres")
		return postgres.NewRepositories(pool), nil

	default:
		client, err := kivik.New("couch", cfg.Database.URL())
		if err != nil {
			return nil, fmt.Errorf("connect couchdb: %w", err)
		}
		created, err := repository.EnsureDatabase(ctx, client, cfg.Database.Name)
		if err != nil {
			client.Close()
			return nil, err
		}
		if created {
			log.Info("created database", slog.String("name", cfg.Database.Name))
		}
		log.Info("connected to couchdb",
			slog.String("host", cfg.Database.Host),
			slog.String("port", cfg.Database.Port))
		return repository.NewCouchRepositories(client, cfg.Database.Name), nil
	}
}

func newTranslator(ctx context.Context, cfg *config.Config, repos *repository.Repositories, log *slog.Logger) (*translation.Service, error) {
	var backend translation.Backend
	switch cfg.Translation.Backend {
	case "passthrough":
		backend = translation.PassthroughBackend{}
	case "lingo", "":
		if cfg.Translation.APIKey == "" {
			log.Warn("LINGO_API_KEY is not set; translation requests will fail")
		}
		backend = translation.NewLingoBackend(cfg.Translation.APIURL, cfg.Translation.APIKey, cfg.Translation.Timeout)
	default:
		return nil, fmt.Errorf("unknown TRANSLATION_BACKEND %q", cfg.Translation.Backend)
	}

	var cache translation.Cache
	switch cfg.Translation.Cache {
	case "store":
		cache = repos.TranslationCache
	case "memory", "":
		mem := translation.NewMemoryCache()
		go sweep(ctx, mem, log)
		cache = mem
	default:
		return nil, fmt.Errorf("unknown TRANSLATION_CACHE %q", cfg.Translation.Cache)
	}

	return translation.NewService(backend, cache, cfg.Translation.CacheTTL, log), nil
}

func sweep(ctx context.Context, cache *translation.MemoryCache, log *slog.Logger) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := cache.Sweep(); n > 0 {
				log.Debug("expired translations dropped", slog.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
