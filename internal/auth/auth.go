package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// GatewayKey is the gin context key holding the authenticated gateway name.
const GatewayKey = "gateway"

func SetupRoutes(r *gin.Engine, secret string) {
	auth := r.Group("/auth")
	{
		auth.GET("/gateway", AuthMiddleware(secret), getGateway)
	}
}

// AuthMiddleware accepts HS256 tokens signed with secret. Websocket upgrades pass the
// token in the "token" query parameter since browsers cannot set headers there.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
				return
			}
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
				return
			}
			token = bearerToken[1]
		}

		claims, err := verifyToken(token, secret)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("Rejected gateway token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		gateway, _ := claims["sub"].(string)
		c.Set(GatewayKey, gateway)
		c.Next()
	}
}

func getGateway(c *gin.Context) {
	gateway, exists := c.Get(GatewayKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Gateway not found in context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"gateway": gateway})
}

// IssueToken signs a gateway token valid for ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

func verifyToken(tokenString, secret string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, errors.New("gateway secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if sub, _ := claims["sub"].(string); sub == "" {
			return nil, errors.New("token has no subject")
		}
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
