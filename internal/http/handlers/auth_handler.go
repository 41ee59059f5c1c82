package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/http/middleware"
)

// LoginRequest is the JSON payload for obtaining a token.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"vpupkin@yandex.ru"`
	Password string `json:"password" binding:"required" example:"Qwerty123"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	AuthToken string `json:"auth_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// Login godoc
// @ID          login
// @Summary     Obtain an auth token
// @Description Exchanges email and password for a token. Send it as "Authorization: Token <token>" (or Bearer).
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.TokenResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad credentials or inactive account"
// @Router      /auth/token/login/ [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.svc.Auth.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, TokenResponse{AuthToken: token})
}

// Logout godoc
// @ID          logout
// @Summary     Revoke the current token
// @Tags        Auth
// @Security    TokenAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Router      /auth/token/logout/ [post]
func (h *Handlers) Logout(c *gin.Context) {
	claims, found := middleware.Claims(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication credentials were not provided")
		return
	}
	if err := h.svc.Auth.Logout(c.Request.Context(), claims); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
