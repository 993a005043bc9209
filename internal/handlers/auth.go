package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/constants"
	"github.com/yukikurage/task-realtime-api/internal/dto"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
	"github.com/yukikurage/task-realtime-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	presence    PresenceChecker
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, presence PresenceChecker) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		presence:    presence,
	}
}

// Register creates an account and signs the user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.saveSessionToken(c, result.Token) {
		return
	}

	respondOK(c, http.StatusCreated, toAuthResponse(result), "User registered successfully")
}

// Login authenticates a user and stores the token in the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(req)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.saveSessionToken(c, result.Token) {
		return
	}

	respondOK(c, http.StatusOK, toAuthResponse(result), "Login successful")
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	respondOK(c, http.StatusOK, nil, "Logged out successfully")
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": dto.ToUserDTO(*user)}, "")
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.UpdateProfile(userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": dto.ToUserDTO(*user)}, "Profile updated successfully")
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.ChangePasswordInput
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(userID, req); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, nil, "Password changed successfully")
}

// ListUsers returns every user with their realtime presence.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers()
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.UserWithPresenceDTO, len(users))
	for i, u := range users {
		out[i] = dto.UserWithPresenceDTO{
			UserDTO: dto.ToUserDTO(u),
			Online:  h.presence != nil && h.presence.IsOnline(u.ID),
		}
	}

	respondOK(c, http.StatusOK, gin.H{"users": out}, "")
}

func (h *AuthHandler) saveSessionToken(c *gin.Context, token string) bool {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyToken, token)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return false
	}
	return true
}

func toAuthResponse(result *services.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{User: dto.ToUserDTO(*result.User), Token: result.Token}
}
