package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/fiscalextract/internal/core"
	db "github.com/markdave123-py/fiscalextract/internal/core/database"
	"github.com/markdave123-py/fiscalextract/internal/models"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	dbclient core.DbClient
	secret   []byte
	logger   *zap.Logger
}

func NewAuthHandler(dbclient core.DbClient, secret []byte, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{dbclient: dbclient, secret: secret, logger: logger}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if h.dbclient == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must have at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create operator")
		return
	}

	now := time.Now().UTC()
	op := &models.Operator{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.dbclient.CreateOperator(r.Context(), op); err != nil {
		h.logger.Warn("create operator", zap.String("email", op.Email), zap.Error(err))
		writeError(w, http.StatusConflict, "operator exists")
		return
	}

	h.respondToken(w, http.StatusCreated, op)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.dbclient == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	op, err := h.dbclient.GetOperatorByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Error("lookup operator", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if op == nil || bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondToken(w, http.StatusOK, op)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, status int, op *models.Operator) {
	token, err := generateJWT(h.secret, op.ID, tokenTTL)
	if err != nil {
		h.logger.Error("sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, map[string]any{"token": token, "operator": op})
}

// generateJWT creates a signed token with the operator id claim
func generateJWT(secret []byte, operatorID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": operatorID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
