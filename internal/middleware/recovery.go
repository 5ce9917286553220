package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/utils"
)

// Recovery is a middleware that recovers from panics and returns a 500 Internal Server Error
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					requestID, _ := auth.GetRequestID(r)
					clientID, _ := auth.GetClientID(r)

					log.Error().
						Str("request_id", requestID).
						Str("client_id", clientID).
						Str("panic", fmt.Sprintf("%v", err)).
						Str("stack", string(debug.Stack())).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("remote_addr", r.RemoteAddr).
						Msg("Panic recovered in request handler")

					utils.Error(
						w,
						http.StatusInternalServerError,
						constants.CodeInternalError,
						constants.MsgInternalServerError,
						nil,
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// PanicOnError panics with message if err is not nil.
// Only for errors that cannot happen in normal operation, such as during startup.
func PanicOnError(err error, message string) {
	if err != nil {
		log.Error().Err(err).Msg("Critical error causing panic")
		panic(fmt.Sprintf("%s: %v", message, err))
	}
}
