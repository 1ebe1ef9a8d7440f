package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"worktrack/models"
	"worktrack/pkg/accounts"
	"worktrack/pkg/auth"
	"worktrack/pkg/events"
	"worktrack/pkg/logx"
)

type userView struct {
	ID         uint    `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	HourlyRate float64 `json:"hourlyRate"`
}

func viewUser(u models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, HourlyRate: u.HourlyRate}
}

// issueSession signs an access token and stores a fresh refresh token.
func issueSession(c *gin.Context, u models.User) (access, refresh string, err error) {
	access, err = tokens.Issue(u.ID, u.Username, u.Email)
	if err != nil {
		return "", "", err
	}
	refresh, err = accts.IssueRefresh(c.Request.Context(), u.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username   string   `json:"username" binding:"required,min=3,max=50"`
		Email      string   `json:"email" binding:"required,email,max=100"`
		Password   string   `json:"password" binding:"required,min=6"`
		HourlyRate *float64 `json:"hourlyRate" binding:"omitempty,gte=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := accts.Register(c.Request.Context(), accounts.Registration{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		HourlyRate: req.HourlyRate,
	})
	if errors.Is(err, accounts.ErrUserExists) {
		respondError(c, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		respondInternal(c, err)
		return
	}
	access, refresh, err := issueSession(c, user)
	if err != nil {
		respondInternal(c, err)
		return
	}
	emit(c, events.UserRegistered, user.ID, gin.H{"username": user.Username})
	logx.FromGin(c).Info("User registered", logx.FieldUserID, user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message":       "User created successfully",
		"token":         access,
		"refresh_token": refresh,
		"user":          viewUser(user),
	})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := accts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		respondInternal(c, err)
		return
	}
	access, refresh, err := issueSession(c, user)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"token":         access,
		"refresh_token": refresh,
		"user":          viewUser(user),
	})
}

// refreshHandler exchanges a refresh token for a new access token and
// rotates the refresh token.
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, fresh, err := accts.Rotate(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, accounts.ErrInvalidRefresh) {
		respondError(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if err != nil {
		respondInternal(c, err)
		return
	}
	access, err := tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "refresh_token": fresh})
}

// revokeRefreshHandler revokes a refresh token, used on logout.
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	err := accts.Revoke(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, accounts.ErrTokenNotFound) {
		respondNotFound(c, "Refresh token")
		return
	}
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Refresh token revoked"})
}

func profileHandler(c *gin.Context) {
	user, ok := loadCurrentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func hourlyRateHandler(c *gin.Context) {
	var req struct {
		HourlyRate *float64 `json:"hourlyRate" binding:"required,gte=0"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res := db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", currentUserID(c)).
		Update("hourly_rate", *req.HourlyRate)
	if res.Error != nil {
		respondInternal(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondNotFound(c, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hourly rate updated successfully", "hourlyRate": *req.HourlyRate})
}

// loadCurrentUser fetches the caller's row, writing 404 when the account
// was removed after the token was issued.
func loadCurrentUser(c *gin.Context) (models.User, bool) {
	var user models.User
	err := db.WithContext(c.Request.Context()).First(&user, currentUserID(c)).Error
	if err != nil {
		if isNotFound(err) {
			respondNotFound(c, "User")
		} else {
			respondInternal(c, err)
		}
		return models.User{}, false
	}
	return user, true
}
