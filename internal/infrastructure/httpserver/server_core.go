package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/ports"
	customMiddleware "github.com/groupbuy/campaign-service/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	// RemoteAddrFallback keys clients by socket address when proxy headers are absent.
	RemoteAddrFallback bool
	// StoreBackend and LedgerBackend are reported by /health.
	StoreBackend  string
	LedgerBackend string
}

type ServerDeps struct {
	CampaignService       ports.CampaignService
	OrderAdmissionService ports.OrderAdmissionService
	RateLimiterService    ports.RateLimiterService
	HealthCheckers        []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	campaignSvc    ports.CampaignService
	admissionSvc   ports.OrderAdmissionService
	rateLimiter    ports.RateLimiterService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
	now            func() time.Time
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		campaignSvc:    deps.CampaignService,
		admissionSvc:   deps.OrderAdmissionService,
		rateLimiter:    deps.RateLimiterService,
		healthCheckers: deps.HealthCheckers,
		now:            time.Now,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiterService,
			serverConfig.RemoteAddrFallback,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
			GetAdmissionDecisions(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
