package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/cellwatch-backend-go/internal/config"
	"github.com/jengzang/cellwatch-backend-go/internal/middleware"
	"github.com/jengzang/cellwatch-backend-go/pkg/response"
)

// tokenTTL is the lifetime of issued operator tokens
const tokenTTL = 24 * time.Hour

// AuthHandler issues bearer tokens for the control endpoints
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// TokenRequest is the body of POST /api/v1/auth/token
type TokenRequest struct {
	Subject string `json:"subject" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// Token handles POST /api/v1/auth/token. The caller proves knowledge of the
// shared secret and receives a signed token for the control endpoints. With
// auth disabled the endpoint does not exist.
func (h *AuthHandler) Token(c *gin.Context) {
	if h.cfg.JWTSecret == "" {
		response.NotFound(c, "Auth is disabled")
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid token payload")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.cfg.JWTSecret)) != 1 {
		response.Error(c, http.StatusUnauthorized, "Invalid secret")
		return
	}

	token, err := middleware.GenerateToken(req.Subject, h.cfg.JWTSecret, tokenTTL)
	if err != nil {
		response.InternalError(c, "Failed to issue token")
		return
	}
	response.Success(c, gin.H{
		"token":     token,
		"expiresIn": int(tokenTTL.Seconds()),
	})
}
