package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthConfig contém a configuração do middleware de autenticação
type AuthConfig struct {
	Token string
}

// BearerAuth protege rotas operacionais (ex.: /metrics) com um token Bearer.
// Token vazio desativa a verificação
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Token == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "header Authorization ausente",
			})
			return
		}

		// Extrai o token do formato "Bearer {token}"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "formato inválido, esperado: Bearer {token}",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(cfg.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "token inválido",
			})
			return
		}

		c.Next()
	}
}
