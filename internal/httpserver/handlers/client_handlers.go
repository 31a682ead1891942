package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"trafficdesk/internal/media"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/client"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxLogoBytes = 5 << 20

type clientReq struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Unit        string `json:"unit"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Status      string `json:"status"`
}

func (req clientReq) applyTo(c *models.Client) {
	c.Name = strings.TrimSpace(req.Name)
	c.Region = strings.TrimSpace(req.Region)
	c.ContactName = req.ContactName
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = req.Phone
	c.Unit = req.Unit
	c.Street = req.Street
	c.City = req.City
	c.Province = req.Province
	c.PostalCode = req.PostalCode
	c.Country = req.Country
	c.Status = req.Status
	if c.Status == "" {
		c.Status = models.ClientActive
	}
}

// ListClients filters, sorts and pages in memory; the client list is small
// enough that one query serves every combination.
func ListClients(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cs []models.Client
		if err := db.Order("created_at desc").Find(&cs).Error; err != nil {
			serverError(w, lg, "list clients failed", err)
			return
		}
		q := r.URL.Query()
		respondJSON(w, client.List(cs, client.Query{
			Q:      q.Get("q"),
			Status: q.Get("status"),
			Region: q.Get("region"),
			Sort:   q.Get("sort"),
			Desc:   strings.EqualFold(q.Get("order"), "desc"),
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", 0),
		}))
	}
}

func GetClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c models.Client
		if err := db.First(&c, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			notFoundOr500(w, lg, "get client failed", err)
			return
		}
		respondJSON(w, c)
	}
}

func CreateClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clientReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var c models.Client
		req.applyTo(&c)
		if v := client.Validate(c); !v.Empty() {
			respondInvalid(w, v)
			return
		}
		if err := db.Create(&c).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		audit(db, r, "client", c.ID, "CLIENT_CREATE", map[string]any{"name": c.Name})
		respondStatus(w, http.StatusCreated, c)
	}
}

func UpdateClient(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clientReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var c models.Client
		if err := db.First(&c, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			notFoundOr500(w, lg, "get client failed", err)
			return
		}
		req.applyTo(&c)
		if v := client.Validate(c); !v.Empty() {
			respondInvalid(w, v)
			return
		}
		if err := db.Save(&c).Error; err != nil {
			serverError(w, lg, "client update failed", err)
			return
		}
		audit(db, r, "client", c.ID, "CLIENT_UPDATE", nil)
		respondJSON(w, c)
	}
}

func DeleteClient(db *gorm.DB, store media.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var c models.Client
		if err := db.First(&c, "id = ?", id).Error; err != nil {
			notFoundOr500(w, lg, "get client failed", err)
			return
		}
		if err := db.Delete(&c).Error; err != nil {
			serverError(w, lg, "client delete failed", err)
			return
		}
		if c.LogoPublicID != "" {
			if err := store.Delete(r.Context(), c.LogoPublicID); err != nil && !errors.Is(err, media.ErrNotFound) {
				lg.Warnw("client logo not removed", "public_id", c.LogoPublicID, "error", err)
			}
		}
		audit(db, r, "client", id, "CLIENT_DELETE", map[string]any{"name": c.Name})
		respondJSON(w, map[string]any{"deleted": true})
	}
}

// UploadClientLogo stores the multipart "file" field and replaces any
// previous logo.
func UploadClientLogo(db *gorm.DB, store media.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c models.Client
		if err := db.First(&c, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			notFoundOr500(w, lg, "get client failed", err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		ct := hdr.Header.Get("Content-Type")
		if !media.AllowedImage(ct) {
			http.Error(w, "logo must be a png, jpeg, gif or webp image", http.StatusUnsupportedMediaType)
			return
		}
		obj, err := store.Save(r.Context(), "clients/logos", ct, file)
		if err != nil {
			serverError(w, lg, "logo upload failed", err)
			return
		}
		old := c.LogoPublicID
		c.LogoURL, c.LogoPublicID = obj.URL, obj.PublicID
		if err := db.Save(&c).Error; err != nil {
			if derr := store.Delete(context.WithoutCancel(r.Context()), obj.PublicID); derr != nil {
				lg.Errorw("orphaned logo not removed", "public_id", obj.PublicID, "error", derr)
			}
			serverError(w, lg, "client update failed", err)
			return
		}
		if old != "" {
			if derr := store.Delete(r.Context(), old); derr != nil && !errors.Is(derr, media.ErrNotFound) {
				lg.Warnw("previous logo not removed", "public_id", old, "error", derr)
			}
		}
		audit(db, r, "client", c.ID, "CLIENT_LOGO", map[string]any{"public_id": obj.PublicID})
		respondJSON(w, c)
	}
}
