package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"chats-be/internal/auth"
	"chats-be/internal/models"
	"chats-be/internal/store"
)

type AuthHandler struct {
	DB     *gorm.DB
	Store  *store.Store
	Tokens *auth.Tokens
	Log    *zap.Logger
}

type registerReq struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email,max=190"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.Store.UserByUsername(c.Request.Context(), req.Username)
	switch {
	case err == nil:
		c.JSON(http.StatusBadRequest, fieldErrors{"username": {"A user with that username already exists."}})
		return
	case !errors.Is(err, store.ErrNotFound):
		serverError(c, h.Log, "lookup username", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		serverError(c, h.Log, "hash password", err)
		return
	}

	u := models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&u).Error; err != nil {
		serverError(c, h.Log, "create user", err)
		return
	}

	c.JSON(http.StatusCreated, u)
}

type tokenReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token exchanges credentials for an access/refresh pair.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenReq
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.Store.UserByUsername(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serverError(c, h.Log, "lookup username", err)
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}

	pair, err := h.Tokens.Issue(u.ID)
	if err != nil {
		serverError(c, h.Log, "issue tokens", err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshReq struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshReq
	if !bindJSON(c, &req) {
		return
	}

	access, err := h.Tokens.Access(req.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}
