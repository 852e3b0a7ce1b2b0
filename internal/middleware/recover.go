package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/evyataryagoni/geoip-service/internal/apperr"
)

// Recoverer turns a panic in a later handler into the 500 error envelope.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
// If the handler already started its response, the panic is only logged.
func Recoverer(translator *apperr.Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				err := fmt.Errorf("panic serving %s: %v", r.URL.Path, rvr)
				if ww.Status() != 0 {
					translator.Translate(err)
					return
				}
				translator.Render(ww, r, err)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
