package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/service"
	"go.uber.org/zap"
)

const (
	msgAuthFailed    = "signature invalid or message altered"
	msgClaimSent     = "claim transaction submitted"
	msgRouteNotFound = "route not found"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Message issues a sign-in challenge for an address
func (h *AuthHandlers) Message(c *gin.Context) {
	var req struct {
		Identity string `json:"identity"`
		Address  string `json:"address"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = req.Address
	}
	if identity == "" {
		fail(c, http.StatusBadRequest, "wallet address is required")
		return
	}

	message, err := h.authService.CreateChallenge(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create challenge", zap.String("address", identity), zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to create challenge")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// SignIn verifies a signed challenge and returns a session token
func (h *AuthHandlers) SignIn(c *gin.Context) {
	var req struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" || req.Signature == "" {
		fail(c, http.StatusBadRequest, "message and signature are required")
		return
	}

	token, address, err := h.authService.SignIn(c.Request.Context(), req.Message, req.Signature)
	if err != nil {
		if core.IsAuthFailure(err) {
			recordSignIn(resultRejected)
			fail(c, http.StatusUnauthorized, msgAuthFailed)
			return
		}
		recordSignIn(resultError)
		h.logger.Error("sign-in failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "sign-in failed")
		return
	}

	recordSignIn(resultSuccess)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"token":    token,
		"identity": address,
		"address":  address,
	})
}

// FaucetHandlers contains HTTP handlers for the session-gated faucet endpoints
type FaucetHandlers struct {
	faucetService *service.FaucetService
}

// NewFaucetHandlers creates new faucet handlers
func NewFaucetHandlers(faucetService *service.FaucetService) *FaucetHandlers {
	return &FaucetHandlers{faucetService: faucetService}
}

// Claim submits a faucet claim for the authenticated address
func (h *FaucetHandlers) Claim(c *gin.Context) {
	address := c.GetString(ContextAddressKey)

	txHash, err := h.faucetService.Claim(c.Request.Context(), address)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrAlreadyClaimed):
			recordClaim(resultAlreadyClaimed)
			c.JSON(http.StatusConflict, gin.H{
				"success":    false,
				"hasClaimed": true,
				"message":    core.ErrAlreadyClaimed.Error(),
			})
		default:
			recordClaim(resultError)
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	recordClaim(resultSuccess)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msgClaimSent,
		"txHash":  txHash,
	})
}

// Status reports the faucet state for the authenticated address
func (h *FaucetHandlers) Status(c *gin.Context) {
	address := c.GetString(ContextAddressKey)

	status, err := h.faucetService.Status(c.Request.Context(), address)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	users := status.Users
	if users == nil {
		users = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"hasClaimed":   status.HasClaimed,
		"balance":      status.Balance,
		"users":        users,
		"faucetAmount": status.FaucetAmount,
		"decimals":     status.Decimals,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
