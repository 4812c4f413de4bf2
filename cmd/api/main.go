package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/bundlebooth/booking-services/cmd/mainconfig"
	"github.com/bundlebooth/booking-services/internal/api/router"
	"github.com/bundlebooth/booking-services/internal/availability"
	"github.com/bundlebooth/booking-services/internal/bookings"
	"github.com/bundlebooth/booking-services/internal/calendar"
	appconfig "github.com/bundlebooth/booking-services/internal/config"
	"github.com/bundlebooth/booking-services/internal/confirmation"
	httpmiddleware "github.com/bundlebooth/booking-services/internal/http/middleware"
	"github.com/bundlebooth/booking-services/internal/notify"
	"github.com/bundlebooth/booking-services/internal/observability/metrics"
	"github.com/bundlebooth/booking-services/internal/payments"
	"github.com/bundlebooth/booking-services/internal/pricing"
	"github.com/bundlebooth/booking-services/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-services API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, err := buildRouter(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildRouter wires every collaborator from cfg. ctx bounds background work
// such as rate limiter eviction.
func buildRouter(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, error) {
	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", cfg.BusinessTimezone, err)
	}

	metricsHandler, bookingMetrics := setupMetrics()

	sender, err := setupEmailSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cal, err := setupCalendar(ctx, cfg, loc, logger)
	if err != nil {
		return nil, err
	}

	renderer := confirmation.NewRenderer(confirmation.RendererConfig{
		Location:       loc,
		BrandName:      cfg.BrandName,
		FromEmail:      cfg.FromEmail,
		FromName:       cfg.FromName,
		CurrencySymbol: cfg.CurrencySymbol,
	})
	confirmations := confirmation.NewService(renderer, sender, bookingMetrics, logger)
	bookingSvc := bookings.NewService(bookings.NewRepository(), cal, logger)

	routerCfg := &router.Config{
		Logger:              logger,
		PricingHandler:      pricing.NewHandler(cfg.CurrencySymbol, logger),
		ConfirmationHandler: confirmation.NewHandler(confirmations, "booking-services", logger),
		BookingsHandler:     bookings.NewHandler(bookingSvc, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimit:           setupRateLimit(ctx, cfg, logger),
	}
	if cal != nil {
		availabilitySvc := availability.NewService(cal, loc, nil, bookingMetrics, logger)
		routerCfg.AvailabilityHandler = availability.NewHandler(availabilitySvc, logger)
	} else {
		logger.Warn("no calendar provider configured; availability endpoint disabled")
	}
	if stripeSvc := payments.NewStripeService(payments.StripeConfig{
		SecretKey:  cfg.StripeSecretKey,
		Currency:   cfg.StripeCurrency,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
	}, logger); stripeSvc != nil {
		routerCfg.PaymentsHandler = payments.NewHandler(stripeSvc, bookingSvc, bookingMetrics, logger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; payment endpoints disabled")
	}
	if cfg.StripeWebhookSecret != "" {
		routerCfg.StripeWebhook = payments.NewStripeWebhookHandler(cfg.StripeWebhookSecret, bookingSvc, logger)
	}

	return router.New(routerCfg), nil
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), bookingMetrics
}

// setupEmailSender picks the configured provider. Providers missing their
// credentials fail startup instead of silently falling back to the stub.
func setupEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "", "stub":
		logger.Warn("using stub email sender; confirmations will not be delivered")
		return notify.NewStubEmailSender(logger), nil
	case "brevo":
		sender := notify.NewBrevoSender(notify.BrevoConfig{
			APIKey:    cfg.BrevoAPIKey,
			BaseURL:   cfg.BrevoBaseURL,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
			Timeout:   cfg.UpstreamTimeout,
		}, logger)
		if sender == nil {
			return nil, errors.New("EMAIL_PROVIDER=brevo requires BREVO_API_KEY")
		}
		return sender, nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)
		if sender == nil {
			return nil, errors.New("EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		return sender, nil
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return notify.NewSESSender(mainconfig.NewSESClient(awsCfg, cfg), notify.SESConfig{
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

// setupCalendar returns a nil Provider when CALENDAR_PROVIDER is none.
func setupCalendar(ctx context.Context, cfg *appconfig.Config, loc *time.Location, logger *logging.Logger) (calendar.Provider, error) {
	switch cfg.CalendarProvider {
	case "", "none":
		return nil, nil
	case "google":
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		provider, err := calendar.NewGoogleProvider(ctx, cfg.GoogleCalendarID, loc, logger, opts...)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "graph":
		if cfg.MicrosoftTenantID == "" || cfg.MicrosoftClientID == "" || cfg.MicrosoftClientSecret == "" || cfg.CalendarOwnerUPN == "" {
			return nil, errors.New("CALENDAR_PROVIDER=graph requires MICROSOFT_TENANT_ID, MICROSOFT_CLIENT_ID, MICROSOFT_CLIENT_SECRET and CALENDAR_OWNER_UPN")
		}
		client := calendar.NewGraphHTTPClient(ctx, calendar.GraphCredentials{
			TenantID:     cfg.MicrosoftTenantID,
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
		})
		client.Timeout = cfg.UpstreamTimeout
		return calendar.NewGraphProvider(client, cfg.CalendarOwnerUPN, loc, logger), nil
	default:
		return nil, fmt.Errorf("unknown CALENDAR_PROVIDER %q", cfg.CalendarProvider)
	}
}

// setupRateLimit uses Redis when REDIS_ADDR is set so limits hold across
// instances, and an in-process limiter otherwise.
func setupRateLimit(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return httpmiddleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, cfg.RateLimitPerMinute).Middleware
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	go func() {
		<-ctx.Done()
		_ = rdb.Close()
	}()
	logger.Info("using redis rate limiter", "addr", cfg.RedisAddr)
	return httpmiddleware.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "bundlebooth:rl", cfg.RateLimitFailOpen, logger).Middleware
}
