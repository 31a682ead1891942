package handlers

import (
	"net/http"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MyLogs returns recent audit logs. Regular users see their own logs.
// Administrators can pass ?all=1 to see everyone's, and anyone can narrow
// by entity and entity_id.
func MyLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		all := q.Get("all") == "1"
		tx := db.Order("created_at desc, id desc").Limit(200)
		if !all || !auth.FromContext(r.Context()).HasRole(models.RoleAdministrator) {
			tx = tx.Where("user_id = ?", auth.Subject(r.Context()))
		}
		if e := q.Get("entity"); e != "" {
			tx = tx.Where("entity = ?", e)
		}
		if id := q.Get("entity_id"); id != "" {
			tx = tx.Where("entity_id = ?", id)
		}
		logs := []models.AuditLog{}
		if err := tx.Find(&logs).Error; err != nil {
			serverError(w, lg, "list logs failed", err)
			return
		}
		respondJSON(w, logs)
	}
}
