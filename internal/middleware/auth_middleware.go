package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"priceSense/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseJWT verifies an HS256 token signed with secret.
func ParseJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user_id claim")
	}
	return claims, nil
}

// OptionalJWT authenticates a bearer token when one is sent and passes
// anonymous requests through. A bad token is rejected rather than ignored.
// With an empty secret the header is not inspected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" || secret == "" {
				return next(c)
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, errorBody(
					"UNAUTHORIZED", "Invalid authorization format",
				))
			}

			claims, err := ParseJWT(tokenParts[1], secret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return c.JSON(http.StatusForbidden, errorBody(
						"FORBIDDEN", "Token expired",
					))
				}
				logger.Warn("jwt_rejected", "trace_id", c.Get(traceIDKey), "error", err)
				return c.JSON(http.StatusUnauthorized, errorBody(
					"UNAUTHORIZED", "Invalid token",
				))
			}

			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)

			return next(c)
		}
	}
}

func errorBody(code, message string) echo.Map {
	return echo.Map{"code": code, "message": message}
}
