package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	icache "MarketPulse/internal/service/cache"
	"MarketPulse/internal/usecase"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
)

// Deps lists the components App starts and stops. Consumer, Producer,
// ClickHouse and Redis are nil when disabled.
type Deps struct {
	Config     *config.Config
	Logger     *applogger.Logger
	HTTPServer *xhttp.Server
	Jobs       *usecase.AnalysisJobs
	Janitor    *usecase.Janitor
	Scheduler  *usecase.AnalysisScheduler
	Consumer   *pkgkafka.Consumer
	Requests   *usecase.KafkaAnalysisRequestHandler
	Producer   *pkgkafka.Producer
	ClickHouse *pkgch.Client
	Redis      *icache.RedisCache
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	l *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	l := d.Logger
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{Deps: d, l: l}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and shuts down when ctx ends.
func (a *App) RunContext(ctx context.Context) error {
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(bg); err != nil {
		shutdownErr := a.shutdown(cancel)
		return errors.Join(err, shutdownErr)
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown(cancel)
}

func (a *App) start(bg context.Context) error {
	if a.Janitor != nil {
		go a.Janitor.Run(bg)
	}

	if a.Scheduler != nil && a.Scheduler.Enabled() {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		a.l.Info("analysis schedule enabled", applogger.String("spec", a.Config.Analysis.Schedule))
	}

	if a.Consumer != nil && a.Requests != nil {
		a.Consumer.RegisterHandler(a.Requests)
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.l.Info("listening for analysis requests", applogger.String("topic", a.Requests.Topic()))
	}

	if err := a.HTTPServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// shutdown stops intake first, then running jobs, then infrastructure.
func (a *App) shutdown(cancelBackground context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.l.Info("shutting down...")
	var errs []error

	if err := a.HTTPServer.Stop(ctx); err != nil {
		a.l.Warn("http shutdown incomplete, closing connections", applogger.Error(err))
		if cerr := a.HTTPServer.Echo().Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("http close: %w", cerr))
		}
	}

	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer stop: %w", err))
		}
	}

	if a.Jobs != nil {
		if err := a.Jobs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("jobs shutdown: %w", err))
		}
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
		}
	}
	if a.Requests != nil {
		a.Requests.Wait()
	}
	cancelBackground()

	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.ClickHouse != nil {
		if err := a.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.l.Error("shutdown finished with errors", applogger.Error(err))
		return err
	}
	a.l.Info("shutdown complete")
	return nil
}
