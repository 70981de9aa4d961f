package web

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"coursehub-payments/internal/infra/logging"
	"coursehub-payments/internal/infra/metrics"
	"coursehub-payments/internal/usecase"
)

const (
	// checkoutCookieName carries the checkout reference the token stash is
	// keyed by; set by the checkout page, read back on the callback.
	checkoutCookieName = "checkout_ref"

	// maxCallbackBody bounds how much of a server-to-server POST body the
	// sniffer will read.
	maxCallbackBody = 64 << 10
)

// callbackHandler serves both GET and POST /payment-callback with identical
// reconciliation semantics. It must always answer with a redirect page:
// a panic anywhere in the pipeline folds into the callback-error redirect.
func callbackHandler(uc usecase.ReconcileUseCase, rp *Responder, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logging.With(r.Context(), logger)
		defer func() {
			if rec := recover(); rec != nil {
				l.Error().Interface("panic", rec).Msg("panic in payment callback")
				metrics.IncReconcile("callback", string(usecase.OutcomeCallbackError))
				rp.Write(w, &usecase.Outcome{Code: usecase.OutcomeCallbackError})
			}
		}()

		metrics.IncCallback(r.Method)

		req := &usecase.CallbackRequest{
			Method:      r.Method,
			Query:       r.URL.Query(),
			Referer:     r.Header.Get("Referer"),
			ContentType: r.Header.Get("Content-Type"),
		}
		if r.Method == http.MethodPost && r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
			if err != nil {
				l.Warn().Err(err).Msg("callback body read failed")
			}
			req.Body = body
		}
		if c, err := r.Cookie(checkoutCookieName); err == nil {
			req.CheckoutRef = c.Value
		}

		outcome := uc.HandleCallback(r.Context(), req)
		metrics.IncReconcile("callback", string(outcome.Code))
		rp.Write(w, outcome)
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
