package controllers

import (
	"errors"
	"net/http"

	"github.com/cafein/cafein-backend/kds"
	"github.com/cafein/cafein-backend/middlewares"
	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	Auth *services.AuthService
	Hub  *kds.Hub
}

func NewUserController(auth *services.AuthService, hub *kds.Hub) *UserController {
	return &UserController{Auth: auth, Hub: hub}
}

// Register creates a staff account. Admin only.
func (uc *UserController) Register(c *gin.Context) {
	var req services.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{"user_id": user.ID})
}

// Login -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	res, err := uc.Auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondError(c, http.StatusUnauthorized, err)
			return
		}
		RespondStateError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user_role":  res.User.Role,
		"user_name":  res.User.Name,
	})
}

func (uc *UserController) GetProfile(c *gin.Context) {
	profile := middlewares.ProfileFrom(c)
	user, err := uc.Auth.FindUser(c.Request.Context(), profile.UserID)
	if err != nil {
		RespondStateError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}

// SignOut revokes the current token and drops the user's live sockets.
// It always succeeds for the caller; problems are only logged.
func (uc *UserController) SignOut(c *gin.Context) {
	claims := middlewares.ClaimsFrom(c)
	if claims == nil {
		utils.ErrorLogger.Warn("Sign out without session claims")
		utils.RespondJSON(c, http.StatusOK, "Signed out", nil)
		return
	}

	uc.Auth.SignOut(claims)
	closed := 0
	if uc.Hub != nil {
		closed = uc.Hub.DisconnectUser(claims.UserID)
	}
	utils.InfoLogger.WithFields(logrus.Fields{"user_id": claims.UserID, "sockets": closed}).Info("User signed out")
	utils.RespondJSON(c, http.StatusOK, "Signed out", nil)
}
