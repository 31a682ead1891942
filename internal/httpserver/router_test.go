package httpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/config"
	"trafficdesk/internal/db"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/media"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/flra"
	"trafficdesk/internal/services/telus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubMailer struct {
	sent []mailer.Message
	fail map[string]bool
}

func (m *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	for _, to := range msg.To {
		if m.fail[to] {
			return errors.New("mailbox unavailable")
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	t     *testing.T
	h     http.Handler
	db    *gorm.DB
	mail  *stubMailer
	token string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{
		DatabaseDriver:  "sqlite",
		DatabaseURL:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		AdminEmail:      "admin@test.local",
		AdminPassword:   "pw",
		TelusClientName: "TELUS",
	}
	lg := zap.NewNop().Sugar()
	gdb, err := db.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, db.Seed(gdb, cfg, lg))

	store, err := media.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	mail := &stubMailer{fail: map[string]bool{}}
	h := NewRouter(Deps{
		DB:          gdb,
		Logger:      lg,
		Tokens:      auth.NewSigner("test-secret", time.Hour),
		MediaSigner: media.NewSigner("key", "secret"),
		Store:       store,
		Mailer:      mail,
		FLRA:        flra.NewService(gdb, store, lg),
		Telus:       telus.NewService(gdb, mail, lg, "TELUS", []string{"reports@telus.example"}),
	})
	f := &fixture{t: t, h: h, db: gdb, mail: mail}
	f.token = f.login("admin@test.local", "pw")
	return f
}

func (f *fixture) login(email, password string) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	return f.doAs(f.token, method, path, body)
}

func (f *fixture) doAs(token, method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(path, field, contentType string, body []byte) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="upload"`, field))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(f.t, err)
	_, err = part.Write(body)
	require.NoError(f.t, err)
	require.NoError(f.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *fixture) client(name string) models.Client {
	c := models.Client{Name: name, Region: "Lower Mainland", Status: models.ClientActive, Street: "1 Main St", City: "Vancouver"}
	require.NoError(f.t, f.db.Create(&c).Error)
	return c
}

func TestLoginSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "admin@test.local", me["email"])

	w = f.doAs("", http.MethodPost, "/v1/auth/login", map[string]string{"email": "admin@test.local", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, "/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.doAs("", http.MethodGet, "/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWorkerCannotReachOfficeRoutes(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/admin/users", map[string]any{"email": "crew@test.local", "password": "short", "roles": []string{"Worker"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = f.do(http.MethodPost, "/v1/admin/users", map[string]any{"email": "crew@test.local", "password": "crew-pass-1", "roles": []string{"Worker"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	crew := f.login("crew@test.local", "crew-pass-1")
	assert.Equal(t, http.StatusForbidden, f.doAs(crew, http.MethodGet, "/v1/clients", nil).Code)
	assert.Equal(t, http.StatusOK, f.doAs(crew, http.MethodGet, "/v1/jobs", nil).Code)
}

func TestClientListFiltersAndValidation(t *testing.T) {
	f := newFixture(t)
	for _, body := range []map[string]string{
		{"name": "Acme Paving", "region": "North", "email": "ops@acme.example"},
		{"name": "Beta Utilities", "region": "South", "status": "inactive"},
		{"name": "Northern Gas", "region": "South"},
	} {
		w := f.do(http.MethodPost, "/v1/clients", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(http.MethodGet, "/v1/clients?q=north&region=south&sort=name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []models.Client `json:"items"`
		Total int             `json:"total"`
	}](t, w)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Northern Gas", page.Items[0].Name)

	w = f.do(http.MethodPost, "/v1/clients", map[string]string{"name": " ", "email": "bad"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errBody := decode[struct {
		Details map[string]string `json:"details"`
	}](t, w)
	assert.Equal(t, "required", errBody.Details["name"])
	assert.Equal(t, "invalid_email", errBody.Details["email"])
}

func TestInvoiceTotalsComputedOnSave(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	var gst models.TaxCode
	require.NoError(t, f.db.First(&gst, "name = ?", "GST").Error)

	body := map[string]any{
		"client_id":     c.ID,
		"create_date":   "2026-10-01T00:00:00Z",
		"due_date":      "2026-10-31T00:00:00Z",
		"discount_type": "percent",
		"discount":      10,
		"subtotal":      999,
		"total_amount":  1,
		"items": []map[string]any{
			{"description": "Flagging Job #123", "quantity": 2, "price": 100, "tax_code_id": gst.ID, "service_date": "2026-10-02T00:00:00Z"},
			{"description": "Signs", "quantity": 1, "price": 50},
		},
	}
	w := f.do(http.MethodPost, "/v1/invoices", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[models.Invoice](t, w)
	assert.Equal(t, "INV-00001", inv.Number)
	assert.Equal(t, 250.0, inv.Subtotal)
	assert.Equal(t, 10.0, inv.Taxes)
	assert.Equal(t, 235.0, inv.TotalAmount)
	assert.Equal(t, "Acme", inv.InvoiceTo.Data().Name)

	w = f.do(http.MethodGet, "/v1/invoices/"+inv.ID+"/groups", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[[]struct {
		JobNumber string `json:"job_number"`
	}](t, w)
	require.Len(t, groups, 2)
	assert.Equal(t, "123", groups[0].JobNumber)
	assert.Equal(t, "", groups[1].JobNumber)

	body["due_date"] = "2026-09-01T00:00:00Z"
	w = f.do(http.MethodPut, "/v1/invoices/"+inv.ID, body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "before_reference")

	body["due_date"] = "2026-10-31T00:00:00Z"
	body["items"] = []map[string]any{{"description": "Flagging", "quantity": 3, "price": 100}}
	w = f.do(http.MethodPut, "/v1/invoices/"+inv.ID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items int64
	f.db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&items)
	assert.EqualValues(t, 1, items)

	w = f.do(http.MethodGet, "/v1/invoices/next-number", nil)
	assert.Contains(t, w.Body.String(), "INV-00002")
}

func createJob(f *fixture, clientID, number string, start time.Time, workers ...string) models.Job {
	f.t.Helper()
	ws := make([]map[string]any, 0, len(workers))
	for _, w := range workers {
		ws = append(ws, map[string]any{"user_id": w, "position": "flagger"})
	}
	w := f.do(http.MethodPost, "/v1/jobs", map[string]any{
		"job_number": number, "client_id": clientID, "status": "pending",
		"start_time": start, "end_time": start.Add(4 * time.Hour), "workers": ws,
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Job](f.t, w)
}

func TestJobBoardAndMove(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	mon := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	a := createJob(f, c.ID, "J-1", mon)
	b := createJob(f, c.ID, "J-2", mon.Add(time.Hour))
	createJob(f, c.ID, "J-3", mon.AddDate(0, 0, 2))

	w := f.do(http.MethodGet, "/v1/jobs/board?mode=week&date=2026-10-15&tz=UTC", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	board := decode[struct {
		Columns []struct {
			ID   string `json:"id"`
			Jobs []struct {
				ID        string `json:"id"`
				JobNumber string `json:"job_number"`
				Attention struct {
					Level string `json:"level"`
				} `json:"attention"`
			} `json:"jobs"`
		} `json:"columns"`
	}](t, w)
	require.Len(t, board.Columns, 7)
	assert.Equal(t, "2026-10-12", board.Columns[0].ID)
	require.Len(t, board.Columns[0].Jobs, 2)
	assert.Equal(t, "J-1", board.Columns[0].Jobs[0].JobNumber)
	assert.Len(t, board.Columns[2].Jobs, 1)

	w = f.do(http.MethodPost, "/v1/jobs/board/move", map[string]any{
		"columns":   []map[string]any{{"id": "2026-10-12", "items": []string{a.ID, b.ID}}, {"id": "2026-10-13", "items": []string{}}},
		"active_id": a.ID,
		"over_id":   "2026-10-13",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[struct {
		Columns []struct {
			Items []string `json:"items"`
		} `json:"columns"`
	}](t, w)
	assert.Equal(t, []string{b.ID}, moved.Columns[0].Items)
	assert.Equal(t, []string{a.ID}, moved.Columns[1].Items)
}

func TestCrewQuickEditReplacesArrays(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	j := createJob(f, c.ID, "J-9", time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC), "u1", "u2")

	w := f.do(http.MethodPut, "/v1/jobs/"+j.ID+"/crew", map[string]any{"workers": []map[string]any{{"user_id": "u3"}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var workers []models.JobWorker
	require.NoError(t, f.db.Where("job_id = ?", j.ID).Find(&workers).Error)
	require.Len(t, workers, 1)
	assert.Equal(t, "u3", workers[0].UserID)
	assert.Equal(t, models.WorkerPending, workers[0].Status)

	w = f.do(http.MethodPut, "/v1/jobs/"+j.ID+"/crew", map[string]any{"workers": []map[string]any{{"user_id": "u4"}, {"user_id": "u4"}}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSaveWithNotificationsKeepsSaveOnMailFailure(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	ok := models.User{Email: "ok@test.local", Name: "Ok", PasswordHash: "x", IsActive: true}
	bad := models.User{Email: "bad@test.local", Name: "Bad", PasswordHash: "x", IsActive: true}
	require.NoError(t, f.db.Create(&ok).Error)
	require.NoError(t, f.db.Create(&bad).Error)
	f.mail.fail["bad@test.local"] = true

	start := time.Date(2026, 10, 21, 8, 0, 0, 0, time.UTC)
	j := createJob(f, c.ID, "J-10", start)
	w := f.do(http.MethodPut, "/v1/jobs/"+j.ID+"/save-with-notifications", map[string]any{
		"job_number": "J-10", "client_id": c.ID, "status": "ready", "start_time": start, "end_time": start.Add(time.Hour),
		"workers": []map[string]any{{"user_id": ok.ID}, {"user_id": bad.ID}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[struct {
		Notified []string `json:"notified"`
		Failed   []struct {
			UserID string `json:"user_id"`
		} `json:"failed"`
	}](t, w)
	assert.Equal(t, []string{ok.ID}, out.Notified)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, bad.ID, out.Failed[0].UserID)

	var stored models.Job
	require.NoError(t, f.db.First(&stored, "id = ?", j.ID).Error)
	assert.Equal(t, models.JobReady, stored.Status)
	require.Len(t, f.mail.sent, 1)
}

func TestFLRASubmitRequiresSignature(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	j := createJob(f, c.ID, "J-11", time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC))

	w := f.do(http.MethodPost, "/v1/flra/submit", map[string]any{"job_id": j.ID, "signature": "  "})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "signature")
	var count int64
	f.db.Model(&models.FLRA{}).Count(&count)
	assert.Zero(t, count)

	w = f.do(http.MethodPost, "/v1/flra/preview", map[string]any{"job_id": j.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodPost, "/v1/flra/submit", map[string]any{"job_id": j.ID, "signature": "R. Singh", "idempotency_key": "abc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[models.FLRA](t, w)
	w = f.do(http.MethodPost, "/v1/flra/submit", map[string]any{"job_id": j.ID, "signature": "R. Singh", "idempotency_key": "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decode[models.FLRA](t, w).ID)

	w = f.do(http.MethodGet, "/v1/flra/"+first.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestTelusReportFlow(t *testing.T) {
	f := newFixture(t)
	c := f.client("TELUS")
	createJob(f, c.ID, "T-1", time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC), "u1")

	w := f.do(http.MethodPost, "/v1/telus-reports/generate-daily?tz=UTC", map[string]string{"date": "2026-10-15"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rep := decode[models.TelusReport](t, w)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, 1, rep.Rows[0].WorkerCount)

	w = f.do(http.MethodPost, "/v1/telus-reports/"+rep.ID+"/send-email", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPatch, "/v1/telus-reports/"+rep.ID+"/rows/"+rep.Rows[0].ID, map[string]any{"approver": "K. Lee"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/telus-reports/"+rep.ID+"/review", nil).Code)
	w = f.do(http.MethodPost, "/v1/telus-reports/"+rep.ID+"/send-email", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, []string{"reports@telus.example"}, f.mail.sent[0].To)

	w = f.do(http.MethodGet, "/v1/telus-reports/"+rep.ID+"/export?format=excel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "telus-daily-2026-10-15.xlsx")
}

func TestMediaSignatureRoundTrip(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/media/signature", map[string]string{"public_id": "clients/logos/x.png"})
	require.Equal(t, http.StatusOK, w.Code)
	upload := decode[media.Signed](t, w)

	w = f.do(http.MethodPost, "/v1/media/destroy", map[string]any{"public_id": "clients/logos/x.png", "timestamp": upload.Timestamp, "signature": upload.Signature})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/v1/media/destroy-signature", map[string]string{"public_id": "clients/logos/x.png"})
	require.Equal(t, http.StatusOK, w.Code)
	signed := decode[media.Signed](t, w)

	w = f.do(http.MethodPost, "/v1/media/destroy", map[string]any{"public_id": "clients/logos/x.png", "timestamp": signed.Timestamp, "signature": signed.Signature})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "not found")

	w = f.do(http.MethodPost, "/v1/media/destroy", map[string]any{"public_id": "clients/logos/x.png", "timestamp": signed.Timestamp, "signature": "00"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadsRejectSVG(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.domain)</script></svg>`)

	w := f.upload("/v1/clients/"+c.ID+"/logo", "file", "image/svg+xml", svg)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	var stored models.Client
	require.NoError(t, f.db.First(&stored, "id = ?", c.ID).Error)
	assert.Empty(t, stored.LogoPublicID)

	j := createJob(f, c.ID, "J-12", time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC))
	w = f.do(http.MethodPost, "/v1/flra", map[string]any{"job_id": j.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[models.FLRA](t, w)
	w = f.upload("/v1/flra/"+draft.ID+"/diagram", "file", "image/svg+xml", svg)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestLogoServedWithLockedDownHeaders(t *testing.T) {
	f := newFixture(t)
	c := f.client("Acme")
	png, err := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")
	require.NoError(t, err)

	w := f.upload("/v1/clients/"+c.ID+"/logo", "file", "image/png", png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Client](t, w)
	require.NotEmpty(t, updated.LogoPublicID)

	w = f.doAs("", http.MethodGet, updated.LogoURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, png, w.Body.Bytes())
}
