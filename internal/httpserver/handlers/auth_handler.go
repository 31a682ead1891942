package handlers

import (
	"net/http"
	"strings"
	"time"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and opens a session row keyed by the token's jti.
func Login(db *gorm.DB, signer *auth.Signer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var u models.User
		if err := db.Preload("Roles").First(&u, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if !u.IsActive {
			http.Error(w, "account disabled", http.StatusForbidden)
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			lg.Infow("login rejected", "user_id", u.ID)
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		roles := u.RoleNames()
		tok, jti, exp, err := signer.Sign(u.ID, roles)
		if err != nil {
			serverError(w, lg, "token error", err)
			return
		}
		if err := db.Create(&models.Session{JTI: jti, UserID: u.ID, ExpiresAt: exp}).Error; err != nil {
			serverError(w, lg, "session error", err)
			return
		}
		uid := u.ID
		_ = db.Create(&models.AuditLog{UserID: &uid, Entity: "user", EntityID: u.ID, Action: "LOGIN", Metadata: models.MustJSON(map[string]any{"ip": r.RemoteAddr})}).Error
		respondJSON(w, map[string]any{"token": tok, "expires_at": exp, "user": u})
	}
}

func Logout(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jti := auth.FromContext(r.Context()).JWTID
		now := time.Now()
		if err := db.Model(&models.Session{}).Where("jti = ? AND revoked_at IS NULL", jti).Update("revoked_at", now).Error; err != nil {
			serverError(w, lg, "logout failed", err)
			return
		}
		audit(db, r, "user", auth.Subject(r.Context()), "LOGOUT", nil)
		respondJSON(w, map[string]any{"ok": true})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.Subject(r.Context())
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", sub).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, map[string]any{
			"id": u.ID, "email": u.Email, "name": u.Name, "phone": u.Phone, "roles": u.RoleNames(), "is_active": u.IsActive,
		})
	}
}
