package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"coursehub-payments/internal/domain"
	"coursehub-payments/internal/domain/ports/repository"
	"coursehub-payments/internal/infra/logging"
)

// CallbackRequest is the transport-neutral shape of one inbound confirmation
// delivery. The web handler fills it from the raw *http.Request; the resolver
// never touches net/http types so it can be exercised without a server.
type CallbackRequest struct {
	Method      string
	Query       url.Values
	Referer     string
	ContentType string
	Body        []byte
	CheckoutRef string // value of the signed checkout cookie, if present
}

// Correlation identifies one checkout session. Token is the primary key the
// gateway verifies against; ConversationID is a secondary parameter accepted
// as an alternate matcher key when no token is recoverable.
type Correlation struct {
	Token          string
	ConversationID string
}

// Key returns the identifier to hand to the gateway and the matcher.
func (c Correlation) Key() string {
	if c.Token != "" {
		return c.Token
	}
	return c.ConversationID
}

// TokenResolver recovers the correlation token from whichever of several
// unreliable sources the gateway happened to preserve.
type TokenResolver struct {
	payments repository.PendingPaymentRepository
	stash    repository.TokenStash
	dev      bool
	log      *zerolog.Logger
}

func NewTokenResolver(payments repository.PendingPaymentRepository, stash repository.TokenStash, dev bool, logger *zerolog.Logger) *TokenResolver {
	return &TokenResolver{payments: payments, stash: stash, dev: dev, log: logger}
}

// Resolve walks the recovery sources in precedence order:
//  1. token query parameter
//  2. token query parameter of the Referer URL
//  3. request body (form-encoded, JSON, or raw "token=" text; the
//     Content-Type header is not trusted — the body is sniffed)
//  4. the server-side token stash, keyed by the checkout cookie
//  5. a conversationId parameter alone, as an alternate matcher key
//  6. POST only: the most recently created PENDING row's stored token
//
// Step 6 is a heuristic with weaker correctness guarantees (it assumes a
// single checkout in flight) and is logged distinctly for audit. Returns
// domain.ErrCorrelationUnavailable when every source comes up empty.
func (r *TokenResolver) Resolve(ctx context.Context, req *CallbackRequest) (Correlation, error) {
	conversationID := req.Query.Get("conversationId")

	if token := req.Query.Get("token"); token != "" {
		return Correlation{Token: token, ConversationID: conversationID}, nil
	}

	if token := tokenFromReferer(req.Referer); token != "" {
		r.log.Debug().Msg("correlation token recovered from referer")
		return Correlation{Token: token, ConversationID: conversationID}, nil
	}

	bodyToken, bodyConvID := scanBody(req.Body)
	if conversationID == "" {
		conversationID = bodyConvID
	}
	if bodyToken != "" {
		r.log.Debug().Msg("correlation token recovered from request body")
		return Correlation{Token: bodyToken, ConversationID: conversationID}, nil
	}

	if req.CheckoutRef != "" && r.stash != nil {
		token, err := r.stash.Get(ctx, req.CheckoutRef)
		if err == nil && token != "" {
			r.log.Info().Msg("correlation token recovered from checkout stash")
			return Correlation{Token: token, ConversationID: conversationID}, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Err(err).Msg("token stash lookup failed")
		}
	}

	if conversationID != "" {
		return Correlation{ConversationID: conversationID}, nil
	}

	if req.Method == http.MethodPost {
		p, err := r.payments.MostRecentPending(ctx, repository.NoTX)
		if err == nil && p != nil {
			r.log.Warn().
				Str("fallback", "last_pending").
				Str("payment_id", p.ID).
				Str("token", logging.Redact(p.CorrelationToken, r.dev)).
				Msg("correlation token guessed from most recent pending row")
			return Correlation{Token: p.CorrelationToken}, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.log.Error().Err(err).Msg("last-pending fallback lookup failed")
		}
	}

	return Correlation{}, domain.ErrCorrelationUnavailable
}

func tokenFromReferer(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

// scanBody sniffs the body for a token and conversationId regardless of the
// declared content type: JSON first when it looks like JSON, then
// form-encoding, then a raw "token=" assignment anywhere in the text.
func scanBody(body []byte) (token, conversationID string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", ""
	}

	if strings.HasPrefix(trimmed, "{") {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if v, ok := payload["token"].(string); ok {
				token = v
			}
			if v, ok := payload["conversationId"].(string); ok {
				conversationID = v
			}
			return token, conversationID
		}
	}

	if vals, err := url.ParseQuery(trimmed); err == nil {
		if v := vals.Get("token"); v != "" {
			return v, vals.Get("conversationId")
		}
		if v := vals.Get("conversationId"); v != "" {
			conversationID = v
		}
	}

	return rawAssignment(trimmed, "token="), conversationID
}

// rawAssignment extracts the value following the first occurrence of key in
// free-form text, stopping at the usual delimiters.
func rawAssignment(s, key string) string {
	i := strings.Index(s, key)
	if i < 0 {
		return ""
	}
	v := s[i+len(key):]
	if j := strings.IndexAny(v, "&\"' \t\r\n;,}"); j >= 0 {
		v = v[:j]
	}
	return v
}
