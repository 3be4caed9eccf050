package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"edumart2/internal/common"
	"edumart2/internal/services"
)

// JWTConfig builds the echo-jwt config for protected route groups. On
// success the verified claims are resolved into an auth context and
// stored on the request context for downstream middleware and handlers.
func JWTConfig(jwtSecret string) echojwt.Config {
	return echojwt.Config{
		SigningKey: []byte(jwtSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(services.SessionClaims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			claims, ok := token.Claims.(*services.SessionClaims)
			if !ok {
				return
			}
			ctx := common.SetAuthContext(c.Request().Context(), services.ContextFromClaims(claims))
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendAuthenticationError(c, "Invalid or missing token")
		},
	}
}

// OptionalAuth resolves a bearer token when one is present but never
// rejects the request. The invitation accept endpoint uses it so both
// authenticated and anonymous callers reach the handler.
func OptionalAuth(tokenSvc services.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
				ac := tokenSvc.ResolveContext(token)
				if ac.IsAuthenticated {
					ctx := common.SetAuthContext(c.Request().Context(), ac)
					c.SetRequest(c.Request().WithContext(ctx))
				}
			}
			return next(c)
		}
	}
}
