// Package rest exposes the account service over HTTP/JSON with gin.
package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/dmitrijs2005/weatherdash/internal/server/models"
	"github.com/dmitrijs2005/weatherdash/internal/server/services"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gin-gonic/gin"
)

// Accounts is implemented by *services.AccountService.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (*services.AuthResult, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

// RegisterRequest is the JSON body of POST /api/users.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// AuthRequest is the JSON body of POST /api/auth.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and authenticate. Message is only
// set on register.
type AuthResponse struct {
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token"`
	User    *models.Profile `json:"user"`
}

// ProfileResponse is returned by GET /api/users/me.
type ProfileResponse struct {
	User *models.Profile `json:"user"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  validation.Errors `json:"errors,omitempty"`
}

const messageBadRequest = "Invalid request body"

type AccountHandler struct {
	accounts Accounts
	logger   logging.Logger
}

func NewAccountHandler(accounts Accounts, logger logging.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// Register handles POST /api/users.
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: messageBadRequest})
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		var verrs validation.Errors
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: verrs.Error(), Errors: verrs})
		case errors.Is(err, common.ErrValidation):
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		case errors.Is(err, common.ErrAccountExists):
			c.JSON(http.StatusConflict, ErrorResponse{Message: common.MessageAccountExists})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Message: common.MessageServerError})
		}
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Message: common.MessageSignupSuccessful,
		Token:   res.Token,
		User:    res.User,
	})
}

// Authenticate handles POST /api/auth.
func (h *AccountHandler) Authenticate(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: messageBadRequest})
		return
	}

	res, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: common.MessageInvalidCredentials})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: common.MessageServerError})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: res.Token, User: res.User})
}

// Me handles GET /api/users/me. It must run behind RequireAuth.
func (h *AccountHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: common.MessageUnauthenticated})
		return
	}

	p, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			h.logger.Warn(ctx, "token for missing account", "user_id", userID)
			c.JSON(http.StatusUnauthorized, ErrorResponse{Message: common.MessageUnauthenticated})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: common.MessageServerError})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{User: p})
}
