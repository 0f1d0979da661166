package middleware

import (
	"mime"
	"net/http"

	apperrors "remoteassist/pkg/errors"
	httputil "remoteassist/pkg/http"
	"remoteassist/pkg/logger"
)

// ContentTypeValidation rejects request bodies that are not declared as
// JSON. Parameters such as charset are allowed.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				log.Warn("Rejected request body content type",
					"request_id", GetRequestID(r.Context()),
					"content_type", r.Header.Get("Content-Type"),
					"method", r.Method,
					"path", r.URL.Path,
				)
				_ = httputil.WriteError(w, apperrors.UnsupportedMediaType("Content-Type must be application/json"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
