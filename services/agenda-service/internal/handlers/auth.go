package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/espacoca/agenda/libs/auth"
)

const adminTokenTTL = 12 * time.Hour

// AdminAuth authenticates the single owner account: a bcrypt password hash
// from configuration, HS256 bearer tokens for the session.
type AdminAuth struct {
	passwordHash string
	jwtSecret    string
	logger       *slog.Logger
}

func NewAdminAuth(passwordHash, jwtSecret string, logger *slog.Logger) *AdminAuth {
	return &AdminAuth{passwordHash: passwordHash, jwtSecret: jwtSecret, logger: logger}
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

type adminLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *AdminAuth) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if a.passwordHash == "" || a.jwtSecret == "" {
		a.logger.Error("admin login not configured")
		writeErrorMsg(w, http.StatusServiceUnavailable, "admin login not configured")
		return
	}

	var req adminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(req.Password)); err != nil {
		writeErrorMsg(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:  "admin",
		Role: "admin",
		Iat:  now.Unix(),
		Exp:  now.Add(adminTokenTTL).Unix(),
	}, a.jwtSecret)
	if err != nil {
		a.logger.Error("token signing failed", "err", err)
		writeErrorMsg(w, http.StatusInternalServerError, "token signing failed")
		return
	}

	writeJSON(w, http.StatusOK, adminLoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(adminTokenTTL.Seconds()),
	})
}

// RequireAdmin guards the admin surface with a valid bearer token.
func (a *AdminAuth) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeErrorMsg(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, a.jwtSecret)
		if err != nil || claims.Role != "admin" {
			writeErrorMsg(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}
