package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct{ hmac []byte }

func NewAuthService(secret string) *AuthService { return &AuthService{hmac: []byte(secret)} }

type Claims struct {
	Sub          string `json:"sub"`
	Role         string `json:"role"`         // "student" or "admin"
	Subscription string `json:"subscription"` // free|premium|admin_override
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role, subscription string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:          sub,
		Role:         role,
		Subscription: subscription,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "keeleklass",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return c, nil
}

// AdminAccount is the back-office login configured from the environment
// rather than the students table.
type AdminAccount struct {
	User     string
	PassHash string // bcrypt
}

// POST /auth/login  { "email": "...", "password": "..." }
// Students authenticate against their stored bcrypt hash; the admin
// account comes from config and logs in with an admin_override tier.
func LoginHandler(a *AuthService, db *sql.DB, admin AdminAccount) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email and password required", http.StatusBadRequest)
			return
		}

		sub, role, tier, err := authenticate(r.Context(), db, admin, req.Email, req.Password)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(sub, role, tier)
		if err != nil {
			http.Error(w, "issue token", 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok})
	}
}

func authenticate(ctx context.Context, db *sql.DB, admin AdminAccount, email, password string) (sub, role, tier string, err error) {
	if admin.User != "" && email == admin.User {
		if bcrypt.CompareHashAndPassword([]byte(admin.PassHash), []byte(password)) != nil {
			return "", "", "", errors.New("invalid credentials")
		}
		return admin.User, "admin", "admin_override", nil
	}

	var id, phash, status string
	err = db.QueryRowContext(ctx,
		`SELECT id, password_hash, subscription_status FROM students WHERE email=$1`, email).
		Scan(&id, &phash, &status)
	if err != nil {
		return "", "", "", errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(phash), []byte(password)) != nil {
		return "", "", "", errors.New("invalid credentials")
	}
	if status == "" {
		status = "free"
	}
	return id, "student", status, nil
}
