package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyRequired checks the X-API-KEY header against a bcrypt hash of the
// service key. An empty hash disables the check for local development.
func APIKeyRequired(keyHash string) gin.HandlerFunc {
	if keyHash == "" {
		log.Println("APIKeyRequired: SERVICE_API_KEY_HASH not set, ingest is unauthenticated")
	}
	return func(c *gin.Context) {
		if keyHash == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-API-KEY")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No API key provided"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			log.Printf("APIKeyRequired: Invalid API key from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API key"})
			return
		}
		c.Next()
	}
}
