// Package requestid propagates a correlation id through each request.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"shelfaudit/pkg/requestcontext"
)

// Header carries the correlation id in both directions.
const Header = "X-Request-ID"

const maxLen = 128

// Middleware reuses the caller's X-Request-ID when present and sane,
// otherwise generates one, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxLen {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
