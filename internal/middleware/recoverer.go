package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/models"
)

// Recoverer turns a handler panic into a 500. The panic value is sent to the
// client only when production is false.
func Recoverer(log *zap.Logger, production bool) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("handler panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("reason", rec),
					zap.Stack("stack"),
				)

				msg := "Internal Server Error"
				if !production {
					msg = fmt.Sprint(rec)
				}
				writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(msg))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
