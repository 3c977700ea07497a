package obs

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-service/internal/common"
)

// Recoverer turns panics raised by any downstream handler into the generic 500 envelope.
type Recoverer struct {
	Logger zerolog.Logger
}

// Middleware implements chi middleware.
func (rc Recoverer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			rc.Logger.Error().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Interface("panic", rvr).
				Bytes("stack", debug.Stack()).
				Msg("unhandled error")
			if recorder.WroteHeader() {
				return
			}
			common.InternalError(recorder)
		}()
		next.ServeHTTP(recorder, r)
	})
}
