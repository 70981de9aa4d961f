package web

import (
	"html/template"
	"net/http"
	"net/url"

	"coursehub-payments/internal/infra/i18n"
	"coursehub-payments/internal/usecase"
)

// redirectPage performs a client-side redirect: script first, meta refresh
// for browsers without script support, plain link as the final fallback.
var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<noscript><meta http-equiv="refresh" content="0;url={{.Dest}}"></noscript>
<title>Redirecting…</title>
</head>
<body>
<script>window.location.replace({{.Dest}});</script>
<p><a href="{{.Dest}}">Continue</a></p>
</body>
</html>
`))

// Responder turns a reconciliation outcome into the always-200 redirect page
// the checkout flow expects. Every path, including internal errors, produces
// a redirect; nothing escapes to the transport layer.
type Responder struct {
	purchasesURL string
	checkoutURL  string
	tr           *i18n.Translator
}

func NewResponder(purchasesURL, checkoutURL string, tr *i18n.Translator) *Responder {
	return &Responder{purchasesURL: purchasesURL, checkoutURL: checkoutURL, tr: tr}
}

func (rp *Responder) Write(w http.ResponseWriter, o *usecase.Outcome) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = redirectPage.Execute(w, struct{ Dest string }{Dest: rp.Destination(o)})
}

// Destination maps the outcome to its redirect target. Success and the
// positively identified replay of a settled checkout both land on the
// purchases page; everything else goes back to checkout with a reason.
func (rp *Responder) Destination(o *usecase.Outcome) string {
	switch o.Code {
	case usecase.OutcomeSuccess, usecase.OutcomeAlreadyProcessed:
		return rp.purchasesURL
	default:
		return rp.checkoutURL + "?error=" + url.QueryEscape(rp.reason(o))
	}
}

func (rp *Responder) reason(o *usecase.Outcome) string {
	switch o.Code {
	case usecase.OutcomeTokenMissing:
		return rp.tr.T("payment.error.token_missing")
	case usecase.OutcomePaymentNotFound:
		return rp.tr.T("payment.error.not_found")
	case usecase.OutcomeVerifyError:
		return rp.tr.T("payment.error.verify")
	case usecase.OutcomeDeclined:
		if o.ErrorCode != "" && rp.tr.Has("gateway."+o.ErrorCode) {
			return rp.tr.T("gateway." + o.ErrorCode)
		}
		if o.Message != "" {
			return o.Message
		}
		return rp.tr.T("payment.error.generic")
	default:
		return rp.tr.T("payment.error.callback")
	}
}
