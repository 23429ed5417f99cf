package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
)

// AuthHandler checks the shared access password. There is no session or
// token model; the browser UI just gates itself on this one check.
type AuthHandler struct {
	password string
	logger   *zap.Logger
}

// NewAuthHandler constructs the login handler.
func NewAuthHandler(password string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{password: password, logger: logger}
}

// Login validates the shared password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		h.logger.Warn("login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
