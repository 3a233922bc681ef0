package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/models"
	"github.com/dmitrijs2005/folio/internal/server/repositories/users"
	"github.com/dmitrijs2005/folio/internal/server/services"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type identityResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	identityResponse
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func newSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{
		AccessToken: s.Token.Value,
		ExpiresAt:   s.Token.ExpiresAt.UTC(),
		identityResponse: identityResponse{
			ID:       s.Identity.ID,
			Username: s.Identity.Username,
			Email:    s.Identity.Email,
		},
	}
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Slug: u.Slug, Email: u.Email, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt.UTC()}
}

// POST /auth
func (s *Server) authenticate(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgAuthenticationFailed})
		return
	}

	sess, err := s.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: msgAuthenticationFailed})
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(sess))
}

// GET /auth/profile
func (s *Server) profile(c *gin.Context) {
	id, _ := identityOf(c)

	profile, err := s.users.Profile(c.Request.Context(), id.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, identityResponse{ID: profile.ID, Username: profile.Username, Email: profile.Email})
}

// POST /auth/refresh
func (s *Server) refresh(c *gin.Context) {
	id, _ := identityOf(c)

	sess, err := s.users.Refresh(c.Request.Context(), id.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(sess))
}

// POST /user
func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, common.ErrorValidation)
		return
	}

	u, err := s.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(u))
}

// PUT /user/password
func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, common.ErrorValidation)
		return
	}

	id, _ := identityOf(c)
	if err := s.users.ChangePassword(c.Request.Context(), id.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: msgAuthenticationFailed})
			return
		}
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GET /user/lookup?by=id|email|slug&value=...
func (s *Server) lookup(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		abortWithError(c, common.ErrorValidation)
		return
	}

	var key users.LookupKey
	switch c.Query("by") {
	case "id":
		key = users.ByID(value)
	case "email":
		key = users.ByEmail(value)
	case "slug":
		key = users.BySlug(value)
	default:
		abortWithError(c, common.ErrorValidation)
		return
	}

	u, err := s.users.Lookup(c.Request.Context(), key)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(u))
}
