package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

const currentUserKey = "current_user"

// accessTokenCookie es el fallback cuando no llega header Authorization.
const accessTokenCookie = "access_token"

// RequireAuth valida el bearer token y resuelve el usuario vivo antes de
// cualquier handler. Token ausente, invalido, vencido, revocado o usuario
// borrado: 401 en todos los casos.
func RequireAuth(jwtSvc *service.JWTService, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			fail(c, http.StatusUnauthorized, "Access denied. No token provided")
			c.Abort()
			return
		}

		claims, err := jwtSvc.ParseSessionToken(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "Invalid or expired token.")
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				fail(c, http.StatusUnauthorized, "User not found")
			} else {
				fail(c, http.StatusInternalServerError, "Internal server error")
			}
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireAdmin corta con 403 cuando la identidad resuelta no es admin.
// Debe correr despues de RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			fail(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		if !user.IsAdmin {
			fail(c, http.StatusForbidden, "Access denied. Admin privileges required.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser obtiene la identidad resuelta desde el contexto.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" && strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
