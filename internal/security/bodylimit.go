package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/payment-service/internal/common"
)

// TooLargeMessage is returned when a payload exceeds the configured ceiling.
const TooLargeMessage = "Request body too large"

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
// Accepted bodies are buffered so handlers see the exact bytes sent.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > b.Max {
			common.Error(w, http.StatusRequestEntityTooLarge, TooLargeMessage)
			return
		}

		limited := io.LimitReader(r.Body, b.Max+1)
		buf, err := io.ReadAll(limited)
		if err != nil && !errors.Is(err, io.EOF) {
			common.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if int64(len(buf)) > b.Max {
			common.Error(w, http.StatusRequestEntityTooLarge, TooLargeMessage)
			return
		}

		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}
