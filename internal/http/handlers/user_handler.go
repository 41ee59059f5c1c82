// User HTTP handlers.
//
// This file exposes account and subscription endpoints:
//   - POST   /users/                   (register)
//   - GET    /users/                   (list, paginated)
//   - GET    /users/{id}/              (profile)
//   - GET    /users/me/                (current user)
//   - POST   /users/set_password/      (change password)
//   - POST   /users/{id}/subscribe/    (follow an author)
//   - DELETE /users/{id}/subscribe/    (unfollow)
//   - GET    /users/subscriptions/     (followed authors, paginated)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recipes-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254" example:"vpupkin@yandex.ru"`
	Username  string `json:"username" binding:"required,max=150" example:"vasya.pupkin"`
	FirstName string `json:"first_name" binding:"required,max=150" example:"Вася"`
	LastName  string `json:"last_name" binding:"required,max=150" example:"Пупкин"`
	Password  string `json:"password" binding:"required,max=150" example:"Qwerty123"`
}

// SetPasswordRequest is the JSON payload for changing the password.
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required" example:"n3wP4ssw0rd"`
	CurrentPassword string `json:"current_password" binding:"required" example:"Qwerty123"`
}

// RegisterUser godoc
// @ID          registerUser
// @Summary     Register a user
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account data"
// @Success     201   {object}  handlers.CreatedUserResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Validation error or email/username taken"
// @Router      /users/ [post]
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.Users.Register(c.Request.Context(), services.RegisterInput{
		Email:     strings.TrimSpace(req.Email),
		Username:  strings.TrimSpace(req.Username),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, CreatedUserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users (paginated)
// @Tags        Users
// @Produce     json
// @Param       page   query     int  false  "Page number"     minimum(1) default(1)
// @Param       limit  query     int  false  "Items per page"  minimum(1) maximum(100)
// @Success     200    {object}  handlers.Page[handlers.UserResponse]
// @Router      /users/ [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	page, limit := h.pagination(c)
	views, total, err := h.svc.Users.ListPage(c.Request.Context(), currentUser(c), page, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, newPage(c, toUsers(views), total, page, limit))
}

// GetUser godoc
// @ID          getUser
// @Summary     User profile
// @Tags        Users
// @Produce     json
// @Param       id   path      int  true  "User ID"
// @Success     200  {object}  handlers.UserResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/ [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	v, err := h.svc.Users.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, toUser(v.User, v.IsSubscribed))
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Tags        Users
// @Produce     json
// @Security    TokenAuth
// @Success     200  {object}  handlers.UserResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Router      /users/me/ [get]
func (h *Handlers) Me(c *gin.Context) {
	uid := currentUser(c)
	v, err := h.svc.Users.Get(c.Request.Context(), uid, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, toUser(v.User, false))
}

// SetPassword godoc
// @ID          setPassword
// @Summary     Change password
// @Tags        Users
// @Accept      json
// @Security    TokenAuth
// @Param       body  body  handlers.SetPasswordRequest  true  "Current and new password"
// @Success     204   {string}  string  "No Content"
// @Failure     400   {object}  handlers.ErrorResponse  "Wrong current password or invalid new password"
// @Failure     401   {object}  handlers.ErrorResponse  "Authentication required"
// @Router      /users/set_password/ [post]
func (h *Handlers) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Users.SetPassword(c.Request.Context(), currentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// Subscribe godoc
// @ID          subscribe
// @Summary     Subscribe to an author
// @Tags        Users
// @Produce     json
// @Security    TokenAuth
// @Param       id             path      int  true   "Author ID"
// @Param       recipes_limit  query     int  false  "Max recipes in the summary"
// @Success     201            {object}  handlers.SubscriptionResponse
// @Failure     400            {object}  handlers.ErrorResponse  "Already subscribed or self-subscription"
// @Failure     401            {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     404            {object}  handlers.ErrorResponse  "Author not found"
// @Router      /users/{id}/subscribe/ [post]
func (h *Handlers) Subscribe(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	v, err := h.svc.Follows.Follow(c.Request.Context(), currentUser(c), id, recipesLimit(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, toSubscription(*v))
}

// Unsubscribe godoc
// @ID          unsubscribe
// @Summary     Unsubscribe from an author
// @Tags        Users
// @Security    TokenAuth
// @Param       id   path  int  true  "Author ID"
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Not subscribed"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     404  {object}  handlers.ErrorResponse  "Author not found"
// @Router      /users/{id}/subscribe/ [delete]
func (h *Handlers) Unsubscribe(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Follows.Unfollow(c.Request.Context(), currentUser(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// Subscriptions godoc
// @ID          subscriptions
// @Summary     Followed authors (paginated)
// @Tags        Users
// @Produce     json
// @Security    TokenAuth
// @Param       page           query     int  false  "Page number"     minimum(1) default(1)
// @Param       limit          query     int  false  "Items per page"  minimum(1) maximum(100)
// @Param       recipes_limit  query     int  false  "Max recipes per author"
// @Success     200            {object}  handlers.Page[handlers.SubscriptionResponse]
// @Failure     401            {object}  handlers.ErrorResponse  "Authentication required"
// @Router      /users/subscriptions/ [get]
func (h *Handlers) Subscriptions(c *gin.Context) {
	page, limit := h.pagination(c)
	views, total, err := h.svc.Follows.Subscriptions(c.Request.Context(), currentUser(c), page, limit, recipesLimit(c))
	if err != nil {
		failErr(c, err)
		return
	}
	items := make([]SubscriptionResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toSubscription(v))
	}
	ok(c, http.StatusOK, newPage(c, items, total, page, limit))
}
