package usecases

import (
	"net/http"
	"strings"

	domainerrors "agency-proxy.backend/internal/domain/errors"
)

const (
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
)

// ResolveCredential extracts the raw API key from a request.
// x-api-key wins over Authorization: Bearer; empty values count as absent.
func ResolveCredential(h http.Header) (string, error) {
	if key := h.Get(HeaderAPIKey); key != "" {
		return key, nil
	}
	auth := h.Get(HeaderAuthorization)
	if strings.HasPrefix(auth, bearerPrefix) {
		if token := strings.TrimPrefix(auth, bearerPrefix); token != "" {
			return token, nil
		}
	}
	return "", domainerrors.ErrMissingCredential
}
