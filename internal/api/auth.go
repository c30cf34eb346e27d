package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/auth"
	"github.com/JakeFAU/crawl-gateway/internal/metrics"
)

const (
	msgInvalidToken = "Invalid authentication token"
	msgForbidden    = "Insufficient permissions"
)

type claimsKey struct{}

// ClaimsFrom returns the claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return claims, ok
}

// authMiddleware rejects the request before its body is read.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil {
			s.unauthorized(w)
			return
		}
		claims, err := s.tokens.Validate(r.Header.Get("Authorization"))
		switch {
		case errors.Is(err, auth.ErrForbidden):
			metrics.ObserveAuthRejection("forbidden")
			s.logger.Info("crawl rejected",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("client_id", claims.ClientID),
				zap.String("reason", "forbidden"),
			)
			s.writeError(w, http.StatusForbidden, msgForbidden)
			return
		case err != nil:
			metrics.ObserveAuthRejection("invalid_token")
			s.logger.Info("crawl rejected",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("reason", "invalid_token"),
				zap.Error(err),
			)
			s.unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	s.writeError(w, http.StatusUnauthorized, msgInvalidToken)
}
