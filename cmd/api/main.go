package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/config"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/fieldservice-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/geocode"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/logger"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sideeffect"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/repository/postgresql"
	activityService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/activity"
	attendanceService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/attendance"
	authService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/auth"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/service/file"
	notificationService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/notification"
	reportService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/report"
	ticketService "github.com/cmlabs-hris/fieldservice-backend-go/internal/service/ticket"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

// repositories is the storage backend selected by DB_DRIVER.
type repositories struct {
	tx            database.Transactor
	users         user.UserRepository
	tickets       ticket.TicketRepository
	history       ticket.HistoryRepository
	audit         audit.Writer
	sessions      attendance.SessionRepository
	activities    activity.ActivityRepository
	stages        activity.StageRepository
	notifications notification.Repository
	reports       report.Repository
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		App:     cfg.App.Name,
		Version: cfg.App.Version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	if err := ticket.ValidateTransitions(); err != nil {
		return fmt.Errorf("invalid ticket transition table: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	clk := clock.Real{}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	var (
		revocations jwt.RevocationStore = jwt.NewMemoryRevocationStore()
		locker      cron.Locker         = cron.NoopLocker{}
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		revocations = jwt.NewRedisRevocationStore(rdb)
		locker = cron.NewRedisLocker(rdb)
		slog.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, revocations)
	if err != nil {
		return fmt.Errorf("failed to initialize jwt service: %w", err)
	}

	var (
		fileStorage storage.FileStorage
		uploadsDir  string
	)
	switch cfg.Storage.Type {
	case "local":
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
		uploadsDir = cfg.Storage.BasePath
	case "s3":
		fileStorage, err = storage.NewS3Storage(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Region, cfg.Storage.S3PublicURL)
		if err != nil {
			return fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
	default:
		return fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}

	var geocoder geocode.Geocoder
	if cfg.Geocoder.URL != "" {
		geocoder = geocode.NewNominatimClient(cfg.Geocoder.URL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout)
	}

	var deadLetters sideeffect.DeadLetterSink = sideeffect.LogSink{}
	if cfg.Slack.BotToken != "" && cfg.Slack.ErrorChannel != "" {
		deadLetters = sideeffect.NewSlackSink(cfg.Slack.BotToken, cfg.Slack.ErrorChannel, cfg.App.Name)
	}
	runner := sideeffect.NewRunner(sideeffect.Options{}, deadLetters)

	hub := sse.NewHub(0)
	notificationSvc := notificationService.NewNotificationService(repos.notifications, hub, clk, notificationService.Config{})

	fileSvc := file.NewFileService(fileStorage)
	activitySvc := activityService.NewActivityService(repos.tx, repos.activities, repos.stages, repos.sessions, repos.audit, clk, loc)
	attendanceSvc := attendanceService.NewAttendanceService(
		repos.tx,
		repos.sessions,
		repos.audit,
		activitySvc,
		geocoder,
		notificationSvc,
		runner,
		clk,
		attendanceService.Config{Location: loc, CutoffHour: cfg.Attendance.CutoffHour},
	)
	ticketSvc := ticketService.NewTicketService(
		repos.tx,
		repos.tickets,
		repos.history,
		repos.audit,
		fileSvc,
		activitySvc,
		notificationSvc,
		runner,
		clk,
	)
	reportSvc := reportService.NewReportService(repos.reports, clk, loc)
	authSvc := authService.NewAuthService(repos.users, JWTService)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Logger:         log,
			UploadsDir:     uploadsDir,
		},
		JWTService,
		appHTTP.Handlers{
			Auth:         appHTTP.NewAuthHandler(authSvc),
			Ticket:       appHTTP.NewTicketHandler(ticketSvc),
			Attendance:   appHTTP.NewAttendanceHandler(attendanceSvc, reportSvc),
			Activity:     appHTTP.NewActivityHandler(activitySvc),
			Notification: appHTTP.NewNotificationHandler(notificationSvc, JWTService),
		},
	)

	scheduler := cron.NewScheduler(loc, locker)
	jobs := cron.NewAttendanceJobs(attendanceSvc, clk)
	if err := jobs.RegisterJobs(scheduler, cfg.Attendance.AutoCheckoutSchedule, cfg.Attendance.CatchUpSchedule); err != nil {
		return fmt.Errorf("failed to register cron jobs: %w", err)
	}
	scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr, "driver", cfg.Database.Driver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// SSE streams hold their requests open until the hub closes
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		slog.Error("cron scheduler shutdown failed", "error", err)
	}
	if err := runner.Wait(shutdownCtx); err != nil {
		slog.Error("pending side effects not finished", "error", err)
	}
	notificationSvc.Stop()

	slog.Info("server stopped")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		if cfg.Database.SeedFile != "" {
			n, err := store.SeedUsersFromFile(ctx, cfg.Database.SeedFile)
			if err != nil {
				return nil, err
			}
			slog.Info("memory store seeded", "users", n)
		}
		slog.Warn("using in-memory storage, data is lost on restart")
		return &repositories{
			tx:            store,
			users:         store.Users(),
			tickets:       store.Tickets(),
			history:       store.History(),
			audit:         store.Audit(),
			sessions:      store.Sessions(),
			activities:    store.Activities(),
			stages:        store.Stages(),
			notifications: store.Notifications(),
			reports:       store.Reports(),
			close:         func() {},
		}, nil

	default:
		dsn := cfg.DatabaseURL()
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(dsn); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		db, err := database.NewPostgreSQLDB(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &repositories{
			tx:            postgresql.NewTransactor(db),
			users:         postgresql.NewUserRepository(db),
			tickets:       postgresql.NewTicketRepository(db),
			history:       postgresql.NewHistoryRepository(db),
			audit:         postgresql.NewAuditRepository(db),
			sessions:      postgresql.NewAttendanceRepository(db),
			activities:    postgresql.NewActivityRepository(db),
			stages:        postgresql.NewStageRepository(db),
			notifications: postgresql.NewNotificationRepository(db),
			reports:       postgresql.NewReportRepository(db),
			close:         db.Close,
		}, nil
	}
}
