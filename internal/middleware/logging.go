package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/utils"
)

// RequestLogging logs every request once the response has been written.
func RequestLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			requestID, ok := auth.GetRequestID(r)
			if !ok {
				requestID = chimiddleware.GetReqID(r.Context())
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			utils.LogHTTPRequest(requestID, r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent(), status, time.Since(start))
		})
	}
}
