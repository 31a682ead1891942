package handlers

import (
	"net/http"
	"strings"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/models"
	"trafficdesk/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		if err := db.Preload("Roles").Order("created_at desc").Find(&users).Error; err != nil {
			serverError(w, lg, "list users failed", err)
			return
		}
		respondJSON(w, users)
	}
}

func CreateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string   `json:"email"`
			Name     string   `json:"name"`
			Phone    string   `json:"phone"`
			Password string   `json:"password"`
			Roles    []string `json:"roles"`
		}
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		v := validation.Violations{}
		validation.Required("email", req.Email, v)
		validation.Email("email", req.Email, v)
		validation.Required("password", req.Password, v)
		if req.Password != "" && auth.CheckStrength(req.Password) != nil {
			v["password"] = "too_short"
		}
		if !v.Empty() {
			respondInvalid(w, v)
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			serverError(w, lg, "hash error", err)
			return
		}
		u := models.User{Email: req.Email, Name: req.Name, Phone: req.Phone, PasswordHash: hash, IsActive: true}
		if len(req.Roles) == 0 {
			req.Roles = []string{models.RoleWorker}
		}
		var roles []models.Role
		_ = db.Where("name IN ?", req.Roles).Find(&roles).Error
		u.Roles = roles
		if err := db.Create(&u).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		audit(db, r, "user", u.ID, "USER_CREATE", map[string]any{"email": u.Email, "roles": u.RoleNames()})
		respondStatus(w, http.StatusCreated, u)
	}
}

func UpdateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Email    *string  `json:"email"`
			Name     *string  `json:"name"`
			Phone    *string  `json:"phone"`
			IsActive *bool    `json:"is_active"`
			Password *string  `json:"password,omitempty"`
			Roles    []string `json:"roles"`
		}
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var u models.User
		if err := db.Preload("Roles").First(&u, "id = ?", id).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if req.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
			v := validation.Violations{}
			validation.Required("email", u.Email, v)
			validation.Email("email", u.Email, v)
			if !v.Empty() {
				respondInvalid(w, v)
				return
			}
		}
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Phone != nil {
			u.Phone = *req.Phone
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if req.Password != nil && *req.Password != "" {
			if auth.CheckStrength(*req.Password) != nil {
				respondInvalid(w, validation.Violations{"password": "too_short"})
				return
			}
			hash, _ := auth.HashPassword(*req.Password)
			u.PasswordHash = hash
		}
		if req.Roles != nil {
			var roles []models.Role
			_ = db.Where("name IN ?", req.Roles).Find(&roles).Error
			if err := db.Model(&u).Association("Roles").Replace(roles); err != nil {
				serverError(w, lg, "role update failed", err)
				return
			}
		}
		if err := db.Omit("Roles").Save(&u).Error; err != nil {
			serverError(w, lg, "user update failed", err)
			return
		}
		audit(db, r, "user", u.ID, "USER_UPDATE", nil)
		respondJSON(w, map[string]any{"updated": true})
	}
}

func DeleteUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == auth.Subject(r.Context()) {
			http.Error(w, "cannot delete yourself", http.StatusBadRequest)
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{Base: models.Base{ID: id}}).Association("Roles").Clear(); err != nil {
				return err
			}
			return tx.Delete(&models.User{}, "id = ?", id).Error
		})
		if err != nil {
			serverError(w, lg, "user delete failed", err)
			return
		}
		audit(db, r, "user", id, "USER_DELETE", nil)
		respondJSON(w, map[string]any{"deleted": true})
	}
}
