package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/logger"
)

const rawBodyKey contextKey = "raw_body"

// WebhookRawBody reads the provider callback body exactly once, before any
// JSON decoding, and keeps the bytes for signature verification. Requests
// without the signature header are rejected here.
func WebhookRawBody(signatureHeader string, maxBytes int64, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(signatureHeader) == "" {
				rejectWebhook(w, log, r, "missing "+signatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r, maxBytes)
			if err != nil {
				rejectWebhook(w, log, r, "failed to read request body")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), rawBodyKey, body)))
		})
	}
}

func RawBody(ctx context.Context) []byte {
	body, _ := ctx.Value(rawBodyKey).([]byte)
	return body
}

func readAndRestoreBody(r *http.Request, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, io.ErrShortBuffer
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func rejectWebhook(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Payment webhook rejected",
		"request_id", RequestID(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	_ = apperrors.WriteError(w, apperrors.InvalidInput(reason))
}
