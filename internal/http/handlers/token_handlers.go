package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/logger"
)

// TokenFlow refreshes and inspects issued tokens
type TokenFlow interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Verify(token string) error
	Me(ctx context.Context, userID uint) (*domain.Profile, error)
}

// TokenHandlers serves the token and profile endpoints
type TokenHandlers struct {
	tokens TokenFlow
	log    *zap.Logger
}

func NewTokenHandlers(tokens TokenFlow, log *zap.Logger) *TokenHandlers {
	return &TokenHandlers{tokens: tokens, log: logger.OrNop(log)}
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// VerifyTokenRequest carries any token this service issued
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

var tokenView = errorView{}

// Refresh trades a refresh token for a new access token
func (h *TokenHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}
	var check fieldCheck
	check.required("refresh", req.Refresh)
	if err := check.err(); err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}

	access, err := h.tokens.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// Verify answers 200 for a live token and 401 otherwise
func (h *TokenHandlers) Verify(c *gin.Context) {
	var req VerifyTokenRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}
	var check fieldCheck
	check.required("token", req.Token)
	if err := check.err(); err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}

	if err := h.tokens.Verify(req.Token); err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Me returns the profile of the authenticated caller
func (h *TokenHandlers) Me(c *gin.Context) {
	userID, ok := c.Get("user_id")
	if !ok {
		respondError(c, h.log, tokenView, domain.ErrTokenInvalid)
		return
	}
	id, ok := userID.(uint)
	if !ok {
		respondError(c, h.log, tokenView, domain.ErrTokenInvalid)
		return
	}

	profile, err := h.tokens.Me(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, tokenView, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
