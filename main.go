package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	api "github.com/rpupo63/projectdal-backend/api"
	"github.com/rpupo63/projectdal-backend/auth"
	"github.com/rpupo63/projectdal-backend/catalog"
	"github.com/rpupo63/projectdal-backend/config"
	"github.com/rpupo63/projectdal-backend/database"
	"github.com/rpupo63/projectdal-backend/feedback"
	"github.com/rpupo63/projectdal-backend/metrics"
	"github.com/rpupo63/projectdal-backend/models"
	"github.com/rpupo63/projectdal-backend/services"
	"github.com/rpupo63/projectdal-backend/storage"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	c := config.New()
	setupLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.LoadSSM(ctx, c); err != nil {
		log.Fatal().Err(err).Msg("Error loading parameters from SSM")
	}

	dbType := config.GetString(c, "DB_TYPE", "")
	fmt.Printf("DB_TYPE: %s\n", dbType)

	var connStr string
	switch dbType {
	case "supa":
		connStr = database.SupabaseDSN(
			config.GetString(c, "SUPABASE_DB_HOST", ""),
			config.GetString(c, "SUPABASE_DB_USER", ""),
			config.GetString(c, "SUPABASE_DB_PASSWORD", ""),
			config.GetString(c, "SUPABASE_DB_NAME", ""),
			config.GetString(c, "SUPABASE_DB_PORT", "5432"),
		)
		fmt.Println("Connecting to Supabase database...")
	case "postgres":
		connStr = config.GetString(c, "DATABASE_URL", "")
		fmt.Println("Connecting to Postgres database...")
	default:
		fmt.Println("Unsupported DB_TYPE. Exiting...")
		os.Exit(1)
	}

	db, err := database.Open(database.Options{
		DSN:           connStr,
		ReplicaDSNs:   config.GetList(c, "DB_REPLICA_DSNS"),
		SlowThreshold: time.Duration(config.GetInt(c, "DB_SLOW_QUERY_MS", 10000)) * time.Millisecond,
	})
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		fmt.Println("Generating models and query helpers...")
		if err := models.GenerateModels(db); err != nil {
			fmt.Printf("Error generating models: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		fmt.Println("Generating column mismatch report...")
		if mismatches := models.GenerateColumnMismatchReport(db); mismatches > 0 {
			os.Exit(1)
		}
		return
	}

	if config.GetBool(c, "AUTO_MIGRATE", false) {
		if err := models.Migrate(db); err != nil {
			fmt.Printf("Error migrating database: %v\n", err)
			os.Exit(1)
		}
	}

	currentDB := database.New(db)
	m := metrics.New()

	source, err := catalog.NewSource(
		config.GetString(c, "FEATURED_CATALOG_PATH", ""),
		currentDB.ProjectRepo(),
		catalog.WithTTL(time.Duration(config.GetInt(c, "CATALOG_TTL_SECONDS", 60))*time.Second),
	)
	if err != nil {
		fmt.Printf("Error loading featured catalog: %v\n", err)
		os.Exit(1)
	}
	if err := source.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("Featured catalog will not reload on change")
	}

	store, files, err := newStorage(ctx, c)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	provider, err := newAuthProvider(c)
	if err != nil {
		fmt.Printf("Error initializing auth provider: %v\n", err)
		os.Exit(1)
	}

	var notifier api.Notifier
	if b := newNotifier(c); b != nil {
		notifier = b
	}

	errChannel := make(chan error)
	defer close(errChannel)

	server, err := api.NewServer(api.Dependencies{
		Projects:     currentDB.ProjectRepo(),
		Catalog:      source,
		Feedback:     feedback.NewService(currentDB.FeedbackRepo(), notifier, m),
		AuthProvider: provider,
		Storage:      store,
		Notifier:     notifier,
		Metrics:      m,
		Files:        files,
	}, c)
	if err != nil {
		fmt.Printf("Error initializing server: %v\n", err)
		os.Exit(1)
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	fmt.Printf("Closing server: %v\n", fatalErr)

	cancel()
	server.ShutdownGracefully(30 * time.Second)
}

func setupLogging(c map[string]string) {
	level, err := zerolog.ParseLevel(config.GetString(c, "LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.GetString(c, "LOG_FORMAT", "") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// newStorage picks S3-compatible object storage, or the local disk when
// STORAGE_BACKEND=local. The returned handler serves local files and is nil
// for S3.
func newStorage(ctx context.Context, c map[string]string) (storage.Service, http.Handler, error) {
	switch backend := config.GetString(c, "STORAGE_BACKEND", "s3"); backend {
	case "local":
		root := config.GetString(c, "LOCAL_STORAGE_DIR", "./uploads")
		publicURL := strings.TrimSuffix(config.GetString(c, "PUBLIC_STORAGE_URL", "http://localhost:8080"), "/") + "/uploads"
		local := storage.NewLocalStore(root, publicURL)
		return local, local.Handler("/uploads/"), nil
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:        config.GetString(c, "STORAGE_ENDPOINT", ""),
			Region:          config.GetString(c, "STORAGE_REGION", "us-east-1"),
			AccessKeyID:     config.GetString(c, "STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: config.GetString(c, "STORAGE_SECRET_ACCESS_KEY", ""),
			PublicURL:       config.GetString(c, "PUBLIC_STORAGE_URL", ""),
			UsePathStyle:    config.GetBool(c, "STORAGE_PATH_STYLE", true),
		})
		if err != nil {
			return nil, nil, err
		}
		return s3Store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", backend)
	}
}

func newAuthProvider(c map[string]string) (auth.Provider, error) {
	switch name := config.GetString(c, "AUTH_PROVIDER", "supabase"); name {
	case "supabase":
		projectURL := config.GetString(c, "SUPABASE_URL", "")
		if projectURL == "" {
			return nil, fmt.Errorf("SUPABASE_URL is required")
		}
		return auth.NewSupabaseProvider(
			projectURL,
			config.GetString(c, "SUPABASE_ANON_KEY", ""),
			config.GetString(c, "SUPABASE_JWT_SECRET", ""),
		), nil
	case "descope":
		provider, err := auth.NewDescopeProvider(config.GetString(c, "DESCOPE_PROJECT_ID", ""))
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported AUTH_PROVIDER %q", name)
	}
}

// newNotifier builds the maintainer notifications from whichever channels are
// configured. It returns nil when none are.
func newNotifier(c map[string]string) *services.Broadcaster {
	var all []services.Channel

	if apiKey := config.GetString(c, "RESEND_API_KEY", ""); apiKey != "" {
		mailer := services.NewMailer(apiKey, config.GetString(c, "NOTIFY_EMAIL_FROM", "ProjectDal <noreply@projectdal.dev>"))
		all = append(all, services.NewEmailChannel(mailer, config.GetList(c, "NOTIFY_EMAILS")))
	}
	if sid := config.GetString(c, "TWILIO_ACCOUNT_SID", ""); sid != "" {
		sms := services.NewSMSSender(sid, config.GetString(c, "TWILIO_AUTH_TOKEN", ""), config.GetString(c, "TWILIO_FROM_NUMBER", ""))
		all = append(all, services.NewSMSChannel(sms, config.GetList(c, "NOTIFY_PHONE_NUMBERS")))
	}

	channels := all
	if names := config.GetList(c, "NOTIFY_CHANNELS"); len(names) > 0 {
		channels = services.SelectChannels(all, names)
	}
	if len(channels) == 0 {
		log.Info().Msg("No notification channels configured")
		return nil
	}
	return services.NewBroadcaster(channels...)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
