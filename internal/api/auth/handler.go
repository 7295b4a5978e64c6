package auth

import (
	"errors"
	"net/http"
	"strings"

	"semzo-prive/internal/api/respond"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/session"
	"semzo-prive/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	store  store.Store
	tokens *session.Tokens
	google *Google
	log    *zap.Logger
}

// NewHandler wires the auth endpoints. google may be nil when Google sign-in is not configured.
func NewHandler(s store.Store, tokens *session.Tokens, google *Google, log *zap.Logger) *Handler {
	return &Handler{store: s, tokens: tokens, google: google, log: log}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		FullName string `json:"full_name" binding:"required,max=120"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hash := string(hashed)

	p := &users.Profile{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: &hash,
		AuthProvider: users.ProviderLocal,
		Role:         users.RoleMember,
	}
	if err := h.store.CreateProfile(c.Request.Context(), p); err != nil {
		if store.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		respond.Error(c, h.log, err)
		return
	}

	token, err := h.tokens.Issue(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}
	h.log.Info("profile registered", zap.String("user_id", p.ID))
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": p})
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.store.GetProfileByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}

	if p.PasswordHash == nil || *p.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*p.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
