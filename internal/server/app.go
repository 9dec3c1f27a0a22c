package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"

	"github.com/IvanMacRib/ParentPalMVP/internal/agent"
	"github.com/IvanMacRib/ParentPalMVP/internal/config"
	"github.com/IvanMacRib/ParentPalMVP/internal/profile"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type App struct {
	cfg      config.Config
	router   *agent.Router
	workflow *agent.Coordinator
	store    profile.Store
	verifier TokenVerifier
}

func New(cfg config.Config, router *agent.Router, workflow *agent.Coordinator, store profile.Store, verifier TokenVerifier) *App {
	return &App{
		cfg:      cfg,
		router:   router,
		workflow: workflow,
		store:    store,
		verifier: verifier,
	}
}

// NewVerifier selects the token verifier for the configured auth mode:
// HS256 JWTs signed with our secret, or Google/Firebase ID tokens.
func NewVerifier(cfg config.Config) TokenVerifier {
	if strings.EqualFold(strings.TrimSpace(cfg.AuthMode), "google") {
		return &GoogleVerifier{Audience: cfg.GoogleAudience}
	}
	return &JWTVerifier{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
		Audience:  cfg.JWTAudience,
		Issuer:    cfg.JWTIssuer,
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", a.health)
	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)
	api.Use(a.authMiddleware())

	api.POST("/chat", a.chat)
	api.GET("/profile/status", a.profileStatus)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}

		userID, err := a.verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			writeError(c, http.StatusUnauthorized, "Invalid token: "+err.Error())
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

type JWTVerifier struct {
	Secret    string
	Algorithm string
	Audience  string
	Issuer    string
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method == nil || token.Method.Alg() != v.Algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid bearer token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token payload")
	}
	if v.Audience != "" && !claimHasAudience(claims["aud"], v.Audience) {
		return "", fmt.Errorf("invalid token audience")
	}
	if v.Issuer != "" {
		issuer, _ := claims["iss"].(string)
		if issuer != v.Issuer {
			return "", fmt.Errorf("invalid token issuer")
		}
	}
	sub, _ := claims["sub"].(string)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", fmt.Errorf("token subject missing")
	}
	return sub, nil
}

// GoogleVerifier validates Google-signed ID tokens (including Firebase Auth
// tokens) against the configured audience.
type GoogleVerifier struct {
	Audience string
}

func (v *GoogleVerifier) Verify(ctx context.Context, tokenString string) (string, error) {
	payload, err := idtoken.Validate(ctx, tokenString, v.Audience)
	if err != nil {
		return "", err
	}
	sub := strings.TrimSpace(payload.Subject)
	if sub == "" {
		return "", fmt.Errorf("token subject missing")
	}
	return sub, nil
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func userIDFromContext(c *gin.Context) (string, bool) {
	raw, ok := c.Get("userID")
	if !ok {
		return "", false
	}
	userID, ok := raw.(string)
	return userID, ok && userID != ""
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
