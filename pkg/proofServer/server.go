/*
Package proofServer publishes stored whitelist campaigns over HTTP so borrowers can fetch
the proof they submit to the Whitelister.

Routes:

	GET /health
	GET /campaigns                                  campaign summaries, oldest first
	GET /campaigns/{id}                             full whitelist document
	GET /campaigns/{id}/users/{account}             the account's ceiling, leaf and proof
	GET /campaigns/{id}/users/{account}/calldata    setMaxBorrow calldata for the account

Every route except /health is rate limited per client IP. X-Forwarded-For and X-Real-IP
are only honored on connections from a configured trusted proxy.
*/
package proofServer

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
)

type Config struct {
	ListenAddress string
	// RequestsPerSecond per client IP; 0 disables limiting
	RequestsPerSecond float64
	Burst             int
	// TrustedProxies are IPs or CIDRs whose forwarding headers name the client
	TrustedProxies []string
}

type Server struct {
	store      persistence.ICampaignPersistence
	logger     *zap.Logger
	limiter    *clientRateLimiter
	proxies    []*net.IPNet
	httpServer *http.Server

	janitorCancel context.CancelFunc
}

func NewServer(store persistence.ICampaignPersistence, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}
	for _, entry := range cfg.TrustedProxies {
		ipNet, err := ParseTrustedProxy(entry)
		if err != nil {
			logger.Sugar().Warnw("Ignoring trusted proxy", "entry", entry, "error", err)
			continue
		}
		s.proxies = append(s.proxies, ipNet)
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = newClientRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.realIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Get("/campaigns", s.handleListCampaigns)
		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/", s.handleGetCampaign)
			r.Get("/users/{account}", s.handleGetUserProof)
			r.Get("/users/{account}/calldata", s.handleGetUserCalldata)
		})
	})

	return r
}

// Start serves in the background until Stop.
func (s *Server) Start() error {
	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.janitorCancel = cancel
		go s.limiter.evictIdle(ctx, time.Minute)
	}

	go func() {
		s.logger.Sugar().Infow("Starting proof server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("Proof server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.janitorCancel != nil {
		s.janitorCancel()
	}
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Sugar().Debugw("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}
