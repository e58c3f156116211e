package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/internal/apperror"
	"github.com/suteetoe/backoffice/pkg/jwtutil"
	"github.com/suteetoe/backoffice/pkg/logger"
	"github.com/suteetoe/backoffice/prometheus"
	"go.uber.org/zap"
)

const claimsKey = "user"

// RequireAccount only lets shop owner tokens through
func RequireAccount(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return jwtAuth(jwtUtil, jwtutil.KindAccount)
}

// RequireCustomer only lets buyer tokens through
func RequireCustomer(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return jwtAuth(jwtUtil, jwtutil.KindCustomer)
}

func jwtAuth(jwtUtil *jwtutil.JWTUtil, kind jwtutil.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			// Extract the token from the Authorization header
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing authorization header")
				prometheus.RecordAuthError("missing_token")
				return apperror.Authentication("Missing authorization header")
			}

			// Check if the header format is valid
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn("Invalid authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return apperror.Authentication("Invalid authorization header format")
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return apperror.Authentication("Invalid or expired token")
			}

			if claims.Kind != kind {
				log.Warn("Token issued for another identity kind",
					zap.String("expected", string(kind)),
					zap.String("got", string(claims.Kind)))
				prometheus.RecordAuthError("wrong_kind")
				return apperror.Authentication("Invalid or expired token")
			}

			// Store the claims in the context for later use
			c.Set(claimsKey, claims)
			log.Debug("JWT token validated successfully",
				zap.Uint("user_id", claims.UserID),
				zap.String("kind", string(claims.Kind)))

			return next(c)
		}
	}
}

// Claims returns the claims stored by the auth middleware, or nil on public routes
func Claims(c echo.Context) *jwtutil.UserClaims {
	claims, _ := c.Get(claimsKey).(*jwtutil.UserClaims)
	return claims
}

// CallerID returns the authenticated account or customer id
func CallerID(c echo.Context) uint {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return 0
}
