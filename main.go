package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mkalnins/bryony/config"
	analysisrepo "github.com/mkalnins/bryony/internal/repositories/analysis"
	officerepo "github.com/mkalnins/bryony/internal/repositories/office"
	"github.com/mkalnins/bryony/pkg/database"
	"github.com/mkalnins/bryony/pkg/events"
	"github.com/mkalnins/bryony/pkg/graph"
	"github.com/mkalnins/bryony/pkg/kafka"
	"github.com/mkalnins/bryony/pkg/merging"
	"github.com/mkalnins/bryony/pkg/middleware"
	"github.com/mkalnins/bryony/pkg/processor"
	"github.com/mkalnins/bryony/pkg/resolver"
	analysisroutes "github.com/mkalnins/bryony/pkg/routes/analysis"
	healthroutes "github.com/mkalnins/bryony/pkg/routes/health"
	officeroutes "github.com/mkalnins/bryony/pkg/routes/office"
	"github.com/mkalnins/bryony/pkg/startup"
	"github.com/mkalnins/bryony/pkg/tracing"
	"github.com/mkalnins/bryony/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	if cfg.TracingEnabled {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to set up tracing")
		} else {
			defer shutdown(ctx)
		}
	}

	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, databaseDSN(cfg))
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	db := database.NewDatabaseInstance(sqlxDB, logger)

	officeRepo := officerepo.NewRepository(db, logger)
	analysisRepo := analysisrepo.NewRepository(db, logger)

	res := resolver.New(resolver.Options{
		VersionMode: merging.VersionMode(cfg.VersionMode),
	})

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaOutputTopic != "" {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}
	emitter := events.NewEmitter(producer, logger)

	var graphClient *graph.Client
	var projector *graph.Projector
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to create graph client")
			os.Exit(1)
		}
		defer graphClient.Close(ctx)
		projector = graph.NewProjector(graphClient, logger)
	}

	proc := processor.NewProcessor(logger, officeRepo, analysisRepo, res, emitter, projector,
		cfg.MergeWorkerCount, cfg.MergeHistoryMaxSize)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	mustRegister(logger, ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	mustRegister(logger, ectoinject.RegisterInstance[config.Config](container, cfg))
	mustRegister(logger, ectoinject.RegisterInstance[database.DB](container, db))
	mustRegister(logger, ectoinject.RegisterInstance[*officerepo.Repository](container, officeRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*analysisrepo.Repository](container, analysisRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*resolver.Resolver](container, res))
	mustRegister(logger, ectoinject.RegisterInstance[*events.Emitter](container, emitter))

	healthChecker := healthroutes.NewChecker(sqlxDB, graphPinger(graphClient), version)

	e := newEcho(cfg, logger)
	healthChecker.RegisterRoutes(e)
	officeroutes.Register(e.Group("/api/v1/offices"))
	analysisroutes.Register(e.Group("/api/v1/analyses"))

	boot := startup.New(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&postgresDependency{db: sqlxDB, cfg: cfg, logger: logger})
	if graphClient != nil {
		boot.AddDependency(&graphDependency{client: graphClient})
	}
	if cfg.KafkaConsumerEnabled {
		consumer := kafka.NewConsumer(cfg, logger, proc.ProcessMessage)
		boot.AddDependency(&consumerDependency{consumer: consumer})
	}
	boot.AddDependency(&httpDependency{e: e, cfg: cfg, logger: logger})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	healthChecker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	healthChecker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapConfig := zap.NewProductionConfig()
		if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
		zapLogger, _ = zapConfig.Build()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// newEcho assembles the server. Route handlers resolve their dependencies
// with ectoinject.GetContext, which falls back to the default container the
// instances above were registered into.
func newEcho(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.AppName))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	return e
}

func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: cfg.TracingOTLPProtocol,
		Insecure: cfg.TracingOTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.Default()),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}

func databaseDSN(cfg config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)
}

func mustRegister(logger ectologger.Logger, err error) {
	if err != nil {
		logger.WithError(err).Error("Failed to register dependency")
		os.Exit(1)
	}
}

// graphPinger adapts the graph client to the health checker interface. A nil
// client yields a nil pinger, which the checker treats as not configured.
func graphPinger(client *graph.Client) interface{ Ping() error } {
	if client == nil {
		return nil
	}
	return &graphPingAdapter{client: client}
}

type graphPingAdapter struct {
	client *graph.Client
}

func (a *graphPingAdapter) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.VerifyConnectivity(ctx)
}

// postgresDependency pings the database and applies migrations on start.
type postgresDependency struct {
	db     *sqlx.DB
	cfg    config.Config
	logger ectologger.Logger
}

func (d *postgresDependency) GetName() string { return "postgres" }
func (d *postgresDependency) DependsOn() []string { return nil }

func (d *postgresDependency) Start(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return err
	}

	driver, err := migratepg.WithInstance(d.db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(d.cfg.DatabaseName, driver)
}

func (d *postgresDependency) Stop(ctx context.Context) error {
	return d.db.Close()
}

type graphDependency struct {
	client *graph.Client
}

func (d *graphDependency) GetName() string { return "graph" }
func (d *graphDependency) DependsOn() []string { return nil }

func (d *graphDependency) Start(ctx context.Context) error {
	return d.client.VerifyConnectivity(ctx)
}

func (d *graphDependency) Stop(ctx context.Context) error {
	return d.client.Close(ctx)
}

type consumerDependency struct {
	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string { return "kafka-consumer" }
func (d *consumerDependency) DependsOn() []string { return []string{"postgres"} }

func (d *consumerDependency) Start(ctx context.Context) error {
	return d.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(ctx context.Context) error {
	return d.consumer.Stop()
}

type httpDependency struct {
	e      *echo.Echo
	cfg    config.Config
	logger ectologger.Logger
}

func (d *httpDependency) GetName() string { return "http" }
func (d *httpDependency) DependsOn() []string { return []string{"postgres"} }

func (d *httpDependency) Start(ctx context.Context) error {
	go func() {
		addr := fmt.Sprintf(":%d", d.cfg.Port)
		if err := d.e.Start(addr); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped")
		}
	}()
	return nil
}

func (d *httpDependency) Stop(ctx context.Context) error {
	return d.e.Shutdown(ctx)
}
