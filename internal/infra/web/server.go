package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/i18n"
	"coursehub-payments/internal/usecase"
)

type Server struct {
	reconcileUC usecase.ReconcileUseCase
	checkoutUC  usecase.CheckoutUseCase
	payments    repository.PendingPaymentRepository
	responder   *Responder
	auth        *AuthManager
	validate    *validator.Validate
	adminPass   string
	log         *zerolog.Logger
	server      *http.Server
}

func NewServer(
	reconcileUC usecase.ReconcileUseCase,
	checkoutUC usecase.CheckoutUseCase,
	payments repository.PendingPaymentRepository,
	purchasesURL, checkoutURL string,
	tr *i18n.Translator,
	auth *AuthManager,
	adminPass string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		reconcileUC: reconcileUC,
		checkoutUC:  checkoutUC,
		payments:    payments,
		responder:   NewResponder(purchasesURL, checkoutURL, tr),
		auth:        auth,
		validate:    validator.New(),
		adminPass:   adminPass,
		log:         logger,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))

	r.Get("/healthz", healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Both verbs carry the same reconciliation semantics.
	cb := callbackHandler(s.reconcileUC, s.responder, s.log)
	r.Get("/payment-callback", cb)
	r.Post("/payment-callback", cb)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", loginHandler(s.auth, s.adminPass, s.log))
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/checkouts", checkoutsCreateHandler(s.checkoutUC, s.validate))
			r.Get("/payments/pending", pendingListHandler(s.payments))
			r.Post("/payments/{token}/reconcile", reconcileHandler(s.reconcileUC))
		})
	})

	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
