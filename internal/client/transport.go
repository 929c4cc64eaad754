package client

import (
	"log/slog"
	"net/http"

	"github.com/sakif/fieldfinder/internal/tokenstore"
)

// bearerTransport attaches the stored token to every outgoing request and
// logs the failures a user would want to know about. It never retries and
// never rewrites a response.
type bearerTransport struct {
	base   http.RoundTripper
	tokens tokenstore.Store
	logger *slog.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := tokenstore.LoadToken(t.tokens)
	if err != nil {
		t.logger.Warn("could not read stored token", slog.String("error", err.Error()))
	}

	if tok != nil {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		tok.SetAuthHeader(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Error("no response from server",
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		t.logger.Warn("unauthorized, please log in", slog.String("path", req.URL.Path))
	case http.StatusForbidden:
		t.logger.Warn("forbidden, no permission", slog.String("path", req.URL.Path))
	case http.StatusNotFound:
		t.logger.Warn("not found", slog.String("path", req.URL.Path))
	}

	return resp, nil
}
