package handlers

import (
	"net/http"
	"strings"
	"trafficdesk/internal/models"
	"trafficdesk/internal/validation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func listAll[T any](db *gorm.DB, lg *zap.SugaredLogger, order string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := []T{}
		if err := db.Order(order).Find(&out).Error; err != nil {
			serverError(w, lg, "list failed", err)
			return
		}
		respondJSON(w, out)
	}
}

// createOne decodes, validates and inserts one lookup row.
func createOne[T any](db *gorm.DB, lg *zap.SugaredLogger, entity string, check func(*T) validation.Violations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec T
		if err := decodeJSON(r, &rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if v := check(&rec); !v.Empty() {
			respondInvalid(w, v)
			return
		}
		if err := db.Create(&rec).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := ""
		if k, ok := any(rec).(interface{ Key() string }); ok {
			id = k.Key()
		}
		audit(db, r, entity, id, strings.ToUpper(entity)+"_CREATE", map[string]any{"record": rec})
		respondStatus(w, http.StatusCreated, rec)
	}
}

func named(name *string) validation.Violations {
	v := validation.Violations{}
	*name = strings.TrimSpace(*name)
	validation.Required("name", *name, v)
	return v
}

func ListTaxCodes(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAll[models.TaxCode](db, lg, "name")
}

func CreateTaxCode(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return createOne(db, lg, "tax_code", func(t *models.TaxCode) validation.Violations {
		v := named(&t.Name)
		validation.NonNegative("rate", t.Rate, v)
		return v
	})
}

func ListTerms(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAll[models.Term](db, lg, "days")
}

func CreateTerm(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return createOne(db, lg, "term", func(t *models.Term) validation.Violations {
		v := named(&t.Name)
		validation.NonNegative("days", float64(t.Days), v)
		return v
	})
}

func ListStores(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAll[models.Store](db, lg, "name")
}

func CreateStore(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return createOne(db, lg, "store", func(s *models.Store) validation.Violations { return named(&s.Name) })
}

func ListServices(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAll[models.Service](db, lg, "name")
}

func CreateService(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return createOne(db, lg, "service", func(s *models.Service) validation.Violations {
		v := named(&s.Name)
		validation.NonNegative("price", s.Price, v)
		return v
	})
}

func ListVehicles(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return listAll[models.Vehicle](db, lg, "name")
}

func CreateVehicle(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return createOne(db, lg, "vehicle", func(veh *models.Vehicle) validation.Violations { return named(&veh.Name) })
}

// ListStaff returns active users for crew pickers, optionally narrowed to
// one role.
func ListStaff(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := db.Preload("Roles").Where("is_active = ?", true).Order("name")
		if role := r.URL.Query().Get("role"); role != "" {
			q = q.Where("id IN (?)", db.Table("user_roles").
				Select("user_roles.user_id").
				Joins("JOIN roles ON roles.id = user_roles.role_id").
				Where("roles.name = ?", role))
		}
		users := []models.User{}
		if err := q.Find(&users).Error; err != nil {
			serverError(w, lg, "list staff failed", err)
			return
		}
		respondJSON(w, users)
	}
}
