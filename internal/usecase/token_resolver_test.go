//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/model"
	"coursehub-payments/internal/usecase"
)

func TestTokenResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	newResolver := func(payments *MockPaymentRepo, stash *MockTokenStash) *usecase.TokenResolver {
		return usecase.NewTokenResolver(payments, stash, true, testLogger)
	}

	t.Run("should prefer the token query parameter over every other source", func(t *testing.T) {
		// --- Arrange ---
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{
			Method:  "GET",
			Query:   url.Values{"token": {"tok-query"}, "conversationId": {"conv-1"}},
			Referer: "https://gateway.example/pay?token=tok-referer",
			Body:    []byte("token=tok-body"),
		}

		// --- Act ---
		corr, err := resolver.Resolve(ctx, req)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-query" {
			t.Errorf("expected token 'tok-query', got '%s'", corr.Token)
		}
		if corr.ConversationID != "conv-1" {
			t.Errorf("expected conversationId 'conv-1', got '%s'", corr.ConversationID)
		}
	})

	t.Run("should recover the token from the referer URL", func(t *testing.T) {
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{
			Method:  "GET",
			Query:   url.Values{},
			Referer: "https://gateway.example/checkout/complete?session=9&token=tok-ref",
		}

		corr, err := resolver.Resolve(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-ref" {
			t.Errorf("expected token 'tok-ref', got '%s'", corr.Token)
		}
	})

	t.Run("should recover the token from a form-encoded body", func(t *testing.T) {
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{
			Method: "POST",
			Query:  url.Values{},
			Body:   []byte("status=success&token=tok-form&conversationId=conv-9"),
		}

		corr, err := resolver.Resolve(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-form" {
			t.Errorf("expected token 'tok-form', got '%s'", corr.Token)
		}
		if corr.ConversationID != "conv-9" {
			t.Errorf("expected conversationId 'conv-9', got '%s'", corr.ConversationID)
		}
	})

	t.Run("should recover the token from a JSON body regardless of content type", func(t *testing.T) {
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{
			Method:      "POST",
			Query:       url.Values{},
			ContentType: "text/plain", // the declared type is not trusted
			Body:        []byte(`{"token":"tok-json","status":"success"}`),
		}

		corr, err := resolver.Resolve(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-json" {
			t.Errorf("expected token 'tok-json', got '%s'", corr.Token)
		}
	})

	t.Run("should recover the token from raw text containing an assignment", func(t *testing.T) {
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{
			Method: "POST",
			Query:  url.Values{},
			Body:   []byte("callback received; token=tok-raw; status=ok"),
		}

		corr, err := resolver.Resolve(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-raw" {
			t.Errorf("expected token 'tok-raw', got '%s'", corr.Token)
		}
	})

	t.Run("should look up the stash by checkout ref before guessing", func(t *testing.T) {
		// --- Arrange ---
		payments := NewMockPaymentRepo()
		// A newer pending row exists; the stash must still win.
		decoy, _ := model.NewPendingPayment("tok-decoy", "user-2", "course-1", "", "")
		_ = payments.Save(ctx, nil, decoy)

		stash := NewMockTokenStash()
		_ = stash.Put(ctx, "ref-42", "tok-stashed", time.Minute)

		resolver := newResolver(payments, stash)
		req := &usecase.CallbackRequest{
			Method:      "POST",
			Query:       url.Values{},
			CheckoutRef: "ref-42",
		}

		// --- Act ---
		corr, err := resolver.Resolve(ctx, req)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-stashed" {
			t.Errorf("expected stashed token, got '%s'", corr.Token)
		}
	})

	t.Run("should fall back to a conversationId alone", func(t *testing.T) {
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{
			Method: "GET",
			Query:  url.Values{"conversationId": {"conv-only"}},
		}

		corr, err := resolver.Resolve(ctx, req)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "" {
			t.Errorf("expected empty token, got '%s'", corr.Token)
		}
		if corr.Key() != "conv-only" {
			t.Errorf("expected key 'conv-only', got '%s'", corr.Key())
		}
	})

	t.Run("should guess the most recent pending row only on POST", func(t *testing.T) {
		// --- Arrange ---
		payments := NewMockPaymentRepo()
		older, _ := model.NewPendingPayment("tok-old", "user-1", "course-1", "", "")
		older.CreatedAt = time.Now().Add(-time.Hour)
		_ = payments.Save(ctx, nil, older)
		newest, _ := model.NewPendingPayment("tok-new", "user-2", "course-2", "", "")
		_ = payments.Save(ctx, nil, newest)

		resolver := newResolver(payments, NewMockTokenStash())
		req := &usecase.CallbackRequest{Method: "POST", Query: url.Values{}}

		// --- Act ---
		corr, err := resolver.Resolve(ctx, req)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if corr.Token != "tok-new" {
			t.Errorf("expected most recent pending token 'tok-new', got '%s'", corr.Token)
		}
	})

	t.Run("should not guess on GET and report correlation unavailable", func(t *testing.T) {
		payments := NewMockPaymentRepo()
		row, _ := model.NewPendingPayment("tok-1", "user-1", "course-1", "", "")
		_ = payments.Save(ctx, nil, row)

		resolver := newResolver(payments, NewMockTokenStash())
		req := &usecase.CallbackRequest{Method: "GET", Query: url.Values{}}

		_, err := resolver.Resolve(ctx, req)
		if !errors.Is(err, domain.ErrCorrelationUnavailable) {
			t.Fatalf("expected ErrCorrelationUnavailable, got %v", err)
		}
	})

	t.Run("should report correlation unavailable when every source is empty", func(t *testing.T) {
		resolver := newResolver(NewMockPaymentRepo(), NewMockTokenStash())
		req := &usecase.CallbackRequest{Method: "POST", Query: url.Values{}}

		_, err := resolver.Resolve(ctx, req)
		if !errors.Is(err, domain.ErrCorrelationUnavailable) {
			t.Fatalf("expected ErrCorrelationUnavailable, got %v", err)
		}
	})
}
