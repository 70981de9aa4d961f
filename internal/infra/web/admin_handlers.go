package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/logging"
	"coursehub-payments/internal/infra/metrics"
	"coursehub-payments/internal/usecase"
)

type loginRequest struct {
	Password string `json:"password"`
}

func loginHandler(auth *AuthManager, password string, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if password == "" {
			logging.With(r.Context(), logger).Error().Msg("admin password is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) != 1 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := auth.Mint(w); err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type checkoutCreateRequest struct {
	UserID        string   `json:"user_id" validate:"required,uuid4"`
	Plan          string   `json:"plan" validate:"required_without=CourseIDs"`
	BillingPeriod string   `json:"billing_period" validate:"omitempty,oneof=monthly 6monthly yearly"`
	CourseIDs     []string `json:"course_ids" validate:"dive,required"`
}

// checkoutsCreateHandler opens a checkout session: one pending row per item,
// all sharing a correlation token that is also stashed server-side. The
// checkout reference comes back both as JSON and as the cookie the callback
// resolver reads.
func checkoutsCreateHandler(checkoutUC usecase.CheckoutUseCase, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx = logging.WithUserID(ctx, req.UserID)
		co, err := checkoutUC.Begin(ctx, req.UserID, req.Plan, model.BillingPeriod(req.BillingPeriod), req.CourseIDs)
		if err != nil {
			http.Error(w, "Failed to create checkout", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     checkoutCookieName,
			Value:    co.CheckoutRef,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(30 * time.Minute),
		})

		response := struct {
			Token       string                  `json:"token"`
			CheckoutRef string                  `json:"checkout_ref"`
			Payments    []*model.PendingPayment `json:"payments"`
		}{
			Token:       co.Token,
			CheckoutRef: co.CheckoutRef,
			Payments:    co.Rows,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// pendingListHandler lists PENDING rows older than ?minutes= (default 10),
// the same view the sweeper works from.
func pendingListHandler(payments repository.PendingPaymentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		minutes, _ := strconv.Atoi(r.URL.Query().Get("minutes"))
		if minutes <= 0 {
			minutes = 10
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}

		cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
		rows, err := payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, limit)
		if err != nil {
			http.Error(w, "Failed to list pending payments", http.StatusInternalServerError)
			return
		}

		response := struct {
			Data  []*model.PendingPayment `json:"data"`
			Limit int                     `json:"limit"`
		}{Data: rows, Limit: limit}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// reconcileHandler triggers a manual reconciliation for a known token, the
// operator's tool for checkouts whose callback never arrived.
func reconcileHandler(uc usecase.ReconcileUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if token == "" {
			http.Error(w, "Token is required", http.StatusBadRequest)
			return
		}

		outcome := uc.ReconcileByToken(r.Context(), token)
		metrics.IncReconcile("admin", string(outcome.Code))

		response := struct {
			Code      usecase.OutcomeCode `json:"code"`
			ErrorCode string              `json:"error_code,omitempty"`
			Message   string              `json:"message,omitempty"`
		}{Code: outcome.Code, ErrorCode: outcome.ErrorCode, Message: outcome.Message}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
