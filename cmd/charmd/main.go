// Command charmd starts the Charm admin gRPC server.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/charm/internal/admin"
	"github.com/and161185/charm/internal/audit"
	"github.com/and161185/charm/internal/auth"
	"github.com/and161185/charm/internal/config"
	"github.com/and161185/charm/internal/event"
	"github.com/and161185/charm/internal/limiter"
	"github.com/and161185/charm/internal/migrate"
	"github.com/and161185/charm/internal/repository/postgres"
	grpcserver "github.com/and161185/charm/internal/server/grpc"
	"github.com/and161185/charm/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the gRPC server.
func main() {
	cfgPath := flag.String("config", "", "YAML config file (CHARM_* env vars override it)")
	dev := flag.Bool("dev", false, "enable server reflection (dev only)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *dev {
		cfg.DevReflection = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Migrate {
		if err := migrate.Up(ctx, cfg.DSN); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	posts := postgres.NewPostRepo(db)
	users := postgres.NewUserRepo(db)
	metaRepo := postgres.NewMetaRepo(db)
	options := postgres.NewOptionRepo(db)
	logs := postgres.NewLogRepo(db)
	if err := logs.EnsureTable(ctx); err != nil {
		logger.Fatal("logs table", zap.Error(err))
	}

	// Services
	bus := event.NewBus(logger.Named("events"))
	metaSvc := service.NewMetaService(metaRepo, bus)
	postSvc := service.NewPostService(posts, metaSvc, bus)
	roleSvc := service.NewRoleService(options)
	if n, err := roleSvc.InstallDefaults(ctx); err != nil {
		logger.Fatal("install roles", zap.Error(err))
	} else if n > 0 {
		logger.Info("installed default roles", zap.Int("count", n))
	}
	userSvc := service.NewUserService(users, metaRepo, postSvc, roleSvc, bus)
	termSvc := service.NewTermService(postgres.NewTermRepo(db), bus)
	siteSvc := service.NewSiteService(postgres.NewSiteRepo(db))
	networkSvc := service.NewNetworkService(postgres.NewNetworkRepo(db))
	optionSvc := service.NewOptionService(options)
	objects := service.NewObjects(postSvc, userSvc, termSvc, siteSvc, networkSvc)

	recorder := audit.NewRecorder(logs, users, posts, objects, cfg.Audit, logger.Named("audit"))
	recorder.Install(bus)
	defer recorder.Close()

	reg := admin.NewRegistry(bus, optionSvc, logger.Named("admin"))
	admin.NewMenuPage(reg, "Activity Log", "Activity Log", grpcserver.CapViewLogs, "charm-activity-log").Register()
	reg.Init(ctx)
	logger.Info("admin ready", zap.Int("pages", len(reg.Pages())))

	tokens := auth.NewTokens([]byte(cfg.JWTKey), cfg.AccessTTL)
	lim := limiter.NewPG(db.Pool, cfg.Limiter.Policy())
	authSvc := service.NewAuthService(userSvc, tokens, lim, bus)

	creds := insecure.NewCredentials()
	if cfg.TLSCert != "" {
		creds, err = credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
	} else {
		logger.Warn("TLS disabled, serving plaintext")
	}

	// gRPC server with interceptors
	s := grpc.NewServer(
		grpc.Creds(creds),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
		),
	)
	grpcserver.RegisterAdminServer(s, grpcserver.New(authSvc, recorder, postSvc, userSvc, tokens))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.DevReflection {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
