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

	"github.com/gorilla/mux"
	"github.com/hashicorp/logutils"
	"github.com/hellofresh/health-go/v5"
	"github.com/kelseyhightower/envconfig"
	"github.com/piraces/feedcache/internal/handlers"
	"github.com/piraces/feedcache/pkg/custom_cache"
	"github.com/piraces/feedcache/pkg/feed"
	"github.com/piraces/feedcache/pkg/new/app"
	"github.com/piraces/feedcache/pkg/new/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slices"
)

// Command line flags.
var (
	storePath = flag.String("store-path", "", "path of the feed store, overrides STORE_PATH")
)

var (
	storeBackends = []string{"file", "sqlite", "memory"}
	remoteFormats = []string{"json", "rss"}
)

type Config struct {
	StoreBackend     string        `envconfig:"STORE_BACKEND" default:"file"`
	StorePath        string        `envconfig:"STORE_PATH" default:""`
	RemoteURL        string        `envconfig:"REMOTE_URL" required:"true"`
	RemoteFormat     string        `envconfig:"REMOTE_FORMAT" default:"json"`
	RemoteCacheTTL   time.Duration `envconfig:"REMOTE_CACHE_TTL" default:"5m"`
	RedisAddress     string        `envconfig:"REDIS_ADDRESS" default:""`
	ValidateInterval time.Duration `envconfig:"VALIDATE_INTERVAL" default:"1h"`
	ListenAddress    string        `envconfig:"LISTEN_ADDRESS" default:":8080"`
	Version          string        `envconfig:"VERSION" default:"unknown"`
}

func LoadConfig() (Config, error) {
	flag.Parse()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("couldn't process envconfig: %w", err)
	}

	if *storePath != "" {
		config.StorePath = *storePath
	}

	if !slices.Contains(storeBackends, config.StoreBackend) {
		return Config{}, fmt.Errorf("invalid STORE_BACKEND %q, expected one of %v", config.StoreBackend, storeBackends)
	}
	if !slices.Contains(remoteFormats, config.RemoteFormat) {
		return Config{}, fmt.Errorf("invalid REMOTE_FORMAT %q, expected one of %v", config.RemoteFormat, remoteFormats)
	}
	if config.ValidateInterval <= 0 {
		return Config{}, fmt.Errorf("VALIDATE_INTERVAL must be positive")
	}

	if config.StorePath == "" {
		config.StorePath = defaultStorePath(config.StoreBackend)
	}

	return config, nil
}

func ConfigureLogging() {
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
		MinLevel: logutils.LogLevel(os.Getenv("LOG_LEVEL")),
		Writer:   os.Stderr,
	}
	log.SetOutput(filter)
}

func CreateHealthCheck(config Config, store app.FeedStore) (*health.Health, error) {
	return health.New(health.WithComponent(health.Component{
		Name:    "feedcache",
		Version: config.Version,
	}), health.WithChecks(health.Config{
		Name:      "feed-store",
		Timeout:   time.Second * 5,
		SkipOnErr: false,
		Check: func(ctx context.Context) error {
			return checkStore(ctx, store)
		},
	},
	))
}

func NewRouter(application app.App, healthCheck *health.Health) *mux.Router {
	router := mux.NewRouter()
	router.Path("/feed").Methods(http.MethodGet).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		handlers.HandleFeed(writer, request, application.GetFeed)
	})
	router.Path("/feed/cached").Methods(http.MethodGet).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		handlers.HandleCachedFeed(writer, request, application.GetCachedFeed)
	})
	router.Path("/feed/validate").Methods(http.MethodPost).HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		handlers.HandleValidateCache(writer, request, application.ValidateCache)
	})
	router.Path("/healthz").HandlerFunc(healthCheck.HandlerFunc)
	router.Path("/metrics").Handler(promhttp.Handler())
	return router
}

func main() {
	ConfigureLogging()

	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	log.Printf("[INFO] Running VERSION %s:\n - STORE_BACKEND=%s\n - STORE_PATH=%s\n - REMOTE_URL=%s\n\n", config.Version, config.StoreBackend, config.StorePath, config.RemoteURL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := OpenStore(config)
	if err != nil {
		log.Fatalf("[FATAL] failed to open the feed store: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Printf("[ERROR] failed to close the feed store: %v", err)
		}
	}()

	responseCache, err := custom_cache.NewResponseCache(config.RedisAddress, config.RemoteCacheTTL)
	if err != nil {
		log.Fatalf("[FATAL] failed to initialize the response cache: %v", err)
	}

	localLoader := app.NewLocalFeedLoader(store, app.NewSystemTimeProvider())
	defer localLoader.Close()

	remoteLoader := feed.NewRemoteFeedLoader(config.RemoteURL, feed.NewDownloader(), newMapper(config.RemoteFormat), responseCache)

	application := app.App{
		GetFeed:       app.NewHandlerGetFeed(remoteLoader, localLoader, localLoader),
		GetCachedFeed: app.NewHandlerGetCachedFeed(localLoader),
		ValidateCache: app.NewHandlerValidateCache(localLoader),
	}

	healthCheck, err := CreateHealthCheck(config, store)
	if err != nil {
		log.Fatalf("[FATAL] failed to create the health check: %v", err)
	}

	go ports.NewValidateCacheTimer(application.ValidateCache, config.ValidateInterval).Run(ctx)

	server := &http.Server{
		Addr:              config.ListenAddress,
		Handler:           NewRouter(application, healthCheck),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] failed to shut down the server: %v", err)
		}
	}()

	log.Printf("[INFO] listening on %s", config.ListenAddress)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[FATAL] server terminated: %v", err)
	}
}

func newMapper(format string) feed.Mapper {
	switch format {
	case "rss":
		return feed.NewRSSMapper()
	default:
		return feed.NewJSONMapper()
	}
}
