package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danielolamide0/lumomemory/internal/service"
)

// SessionTokenMiddleware valida que el bearer token corresponda a la sesion
// de la ruta. Con tokens deshabilitados (servicio nil) deja pasar todo, para
// despliegues de un solo usuario.
func SessionTokenMiddleware(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		sessionID, err := tokens.Parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		if sessionID != c.Param("id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "token does not match session"})
			c.Abort()
			return
		}

		c.Next()
	}
}
