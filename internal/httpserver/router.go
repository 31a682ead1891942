package httpserver

import (
	"net/http"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/httpserver/handlers"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/media"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/flra"
	"trafficdesk/internal/services/telus"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes are wired with.
type Deps struct {
	DB          *gorm.DB
	Logger      *zap.SugaredLogger
	Tokens      *auth.Signer
	MediaSigner *media.Signer
	Store       media.Store
	Mailer      mailer.Mailer
	FLRA        *flra.Service
	Telus       *telus.Service
}

func NewRouter(d Deps) http.Handler {
	db, lg := d.DB, d.Logger
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(db, d.Tokens, lg))
	r.Get("/media/*", handlers.ServeMedia(d.Store, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db, d.Tokens))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(db, lg))
		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(models.RoleAdministrator))
			admin.Get("/v1/admin/users", handlers.ListUsers(db, lg))
			admin.Post("/v1/admin/users", handlers.CreateUser(db, lg))
			admin.Patch("/v1/admin/users/{id}", handlers.UpdateUser(db, lg))
			admin.Delete("/v1/admin/users/{id}", handlers.DeleteUser(db, lg))
		})

		protected.Group(func(office chi.Router) {
			office.Use(auth.RequireRole(models.RoleAdministrator, models.RoleDispatcher))

			office.Get("/v1/clients", handlers.ListClients(db, lg))
			office.Post("/v1/clients", handlers.CreateClient(db, lg))
			office.Get("/v1/clients/{id}", handlers.GetClient(db, lg))
			office.Put("/v1/clients/{id}", handlers.UpdateClient(db, lg))
			office.Delete("/v1/clients/{id}", handlers.DeleteClient(db, d.Store, lg))
			office.Post("/v1/clients/{id}/logo", handlers.UploadClientLogo(db, d.Store, lg))

			office.Post("/v1/tax-codes", handlers.CreateTaxCode(db, lg))
			office.Post("/v1/terms", handlers.CreateTerm(db, lg))
			office.Post("/v1/stores", handlers.CreateStore(db, lg))
			office.Post("/v1/services", handlers.CreateService(db, lg))
			office.Post("/v1/vehicles", handlers.CreateVehicle(db, lg))

			office.Get("/v1/invoices", handlers.ListInvoices(db, lg))
			office.Post("/v1/invoices", handlers.CreateInvoice(db, lg))
			office.Get("/v1/invoices/next-number", handlers.NextInvoiceNumber(db, lg))
			office.Get("/v1/invoices/{id}", handlers.GetInvoice(db, lg))
			office.Put("/v1/invoices/{id}", handlers.UpdateInvoice(db, lg))
			office.Delete("/v1/invoices/{id}", handlers.DeleteInvoice(db, lg))
			office.Get("/v1/invoices/{id}/groups", handlers.InvoiceGroups(db, lg))

			office.Post("/v1/jobs", handlers.CreateJob(db, lg))
			office.Put("/v1/jobs/{id}", handlers.UpdateJob(db, lg))
			office.Delete("/v1/jobs/{id}", handlers.DeleteJob(db, lg))
			office.Put("/v1/jobs/{id}/crew", handlers.UpdateCrew(db, lg))
			office.Put("/v1/jobs/{id}/save-with-notifications", handlers.SaveWithNotifications(db, d.Mailer, lg))
			office.Post("/v1/jobs/board/move", handlers.MoveOnBoard(lg))

			office.Get("/v1/telus-reports", handlers.ListTelusReports(d.Telus, lg))
			office.Get("/v1/telus-reports/{id}", handlers.GetTelusReport(d.Telus, lg))
			office.Post("/v1/telus-reports/generate-daily", handlers.GenerateTelusReport(d.Telus, models.TelusDaily, lg))
			office.Post("/v1/telus-reports/generate-weekly", handlers.GenerateTelusReport(d.Telus, models.TelusWeekly, lg))
			office.Patch("/v1/telus-reports/{id}/rows/{rowID}", handlers.UpdateTelusRow(d.Telus, lg))
			office.Post("/v1/telus-reports/{id}/review", handlers.ReviewTelusReport(d.Telus, lg))
			office.Post("/v1/telus-reports/{id}/send-email", handlers.SendTelusReport(d.Telus, lg))
			office.Get("/v1/telus-reports/{id}/export", handlers.ExportTelusReport(d.Telus, lg))

			office.Post("/v1/media/signature", handlers.SignUpload(d.MediaSigner, lg))
			office.Post("/v1/media/destroy-signature", handlers.SignDestroy(d.MediaSigner, lg))
			office.Post("/v1/media/destroy", handlers.DestroyMedia(d.MediaSigner, d.Store, lg))
		})

		// Field crews read jobs and fill in assessments.
		protected.Get("/v1/tax-codes", handlers.ListTaxCodes(db, lg))
		protected.Get("/v1/terms", handlers.ListTerms(db, lg))
		protected.Get("/v1/stores", handlers.ListStores(db, lg))
		protected.Get("/v1/services", handlers.ListServices(db, lg))
		protected.Get("/v1/vehicles", handlers.ListVehicles(db, lg))
		protected.Get("/v1/staff", handlers.ListStaff(db, lg))

		protected.Get("/v1/jobs", handlers.ListJobs(db, lg))
		protected.Get("/v1/jobs/open", handlers.OpenJobs(db, lg))
		protected.Get("/v1/jobs/board", handlers.JobBoard(db, lg))
		protected.Get("/v1/jobs/{id}", handlers.GetJob(db, lg))

		protected.Get("/v1/flra", handlers.ListFLRA(d.FLRA, lg))
		protected.Post("/v1/flra", handlers.CreateFLRADraft(d.FLRA, lg))
		protected.Post("/v1/flra/preview", handlers.PreviewFLRA(d.FLRA, lg))
		protected.Post("/v1/flra/submit", handlers.SubmitFLRA(d.FLRA, lg))
		protected.Get("/v1/flra/{id}", handlers.GetFLRA(d.FLRA, lg))
		protected.Put("/v1/flra/{id}", handlers.UpdateFLRADraft(d.FLRA, lg))
		protected.Post("/v1/flra/{id}/diagram", handlers.UploadFLRADiagram(d.FLRA, lg))
		protected.Get("/v1/flra/{id}/pdf", handlers.FLRAPDF(d.FLRA, lg))

		protected.Get("/v1/logs", handlers.MyLogs(db, lg))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
