package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salesops/leadhub/internal/domain/lead"
	"github.com/salesops/leadhub/internal/domain/user"
	"github.com/salesops/leadhub/internal/http/handlers"
	"github.com/salesops/leadhub/internal/http/middlewares"
)

type fakeLeadsStore struct {
	create       func(ctx context.Context, l lead.Lead) (lead.Lead, error)
	getByID      func(ctx context.Context, id string) (lead.Lead, error)
	list         func(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error)
	update       func(ctx context.Context, id string, req lead.UpdateLeadRequest) (lead.Lead, error)
	updateStatus func(ctx context.Context, id string, status lead.Status, notes *string) (lead.Lead, error)
	delete       func(ctx context.Context, id string) error
}

func (f *fakeLeadsStore) Create(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	return f.create(ctx, l)
}

func (f *fakeLeadsStore) GetByID(ctx context.Context, id string) (lead.Lead, error) {
	return f.getByID(ctx, id)
}

func (f *fakeLeadsStore) List(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error) {
	return f.list(ctx, filter)
}

func (f *fakeLeadsStore) Update(ctx context.Context, id string, req lead.UpdateLeadRequest) (lead.Lead, error) {
	return f.update(ctx, id, req)
}

func (f *fakeLeadsStore) UpdateStatus(ctx context.Context, id string, status lead.Status, notes *string) (lead.Lead, error) {
	return f.updateStatus(ctx, id, status, notes)
}

func (f *fakeLeadsStore) Delete(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

// newLeadsRouter mirrors the production route layout with the identity
// injected directly, skipping the token middleware.
func newLeadsRouter(store handlers.LeadsStore, u user.User) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middlewares.SetCurrentUser(c, u)
	})

	h := handlers.NewLeadsHandler(store, nil)

	r.POST("/api/leads", h.CreateLead)
	r.GET("/api/leads", h.ListLeads)
	r.POST("/api/leads/upload", h.UploadLeads)
	r.GET("/api/leads/export/excel", h.ExportLeads)
	r.GET("/api/leads/:id", h.GetLead)
	r.PUT("/api/leads/:id", h.UpdateLead)
	r.PATCH("/api/leads/:id/status", h.UpdateLeadStatus)
	r.DELETE("/api/leads/:id", h.DeleteLead)

	return r
}

func salesActor(id string) user.User {
	return user.User{ID: id, Email: id + "@example.com", Role: user.RoleSales, IsActive: true}
}

func adminActor(id string) user.User {
	return user.User{ID: id, Email: id + "@example.com", Role: user.RoleAdmin, IsActive: true}
}

func strPtr(s string) *string { return &s }

func decodeErrorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v body=%s", err, body.String())
	}

	return resp.Error.Code
}

func TestGetLeadMissingIsNotFoundForAnyRole(t *testing.T) {
	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{}, lead.ErrNotFound
		},
	}

	// a sales user who could never see the lead still gets 404,
	// not 403: existence is checked first
	r := newLeadsRouter(store, salesActor("sales-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusNotFound, w.Body.String())
	}

	if code := decodeErrorCode(t, w.Body); code != "not_found" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestGetLeadForeignAssignmentForbiddenForSales(t *testing.T) {
	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{ID: id, Name: "Acme", AssignedTo: strPtr("sales-2")}, nil
		},
	}

	r := newLeadsRouter(store, salesActor("sales-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/l1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusForbidden, w.Body.String())
	}
}

func TestGetLeadOwnAssignmentVisibleToSales(t *testing.T) {
	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{ID: id, Name: "Acme", AssignedTo: strPtr("sales-1")}, nil
		},
	}

	r := newLeadsRouter(store, salesActor("sales-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/l1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var got lead.Lead

	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal lead: %v", err)
	}

	if got.ID != "l1" || got.Name != "Acme" {
		t.Fatalf("unexpected lead: %+v", got)
	}
}

func TestListLeadsPinsSalesAssignee(t *testing.T) {
	var captured lead.ListFilter

	store := &fakeLeadsStore{
		list: func(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error) {
			captured = filter
			return []lead.Lead{}, nil
		},
	}

	r := newLeadsRouter(store, salesActor("sales-1"))

	// the caller asks for someone else's pipeline; the scope ignores it
	req := httptest.NewRequest(http.MethodGet, "/api/leads?assigned_to=sales-2&status=new", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	if captured.AssignedTo == nil || *captured.AssignedTo != "sales-1" {
		t.Fatalf("assignee not pinned to actor: %+v", captured.AssignedTo)
	}

	if captured.Status == nil || *captured.Status != lead.StatusNew {
		t.Fatalf("status filter should survive scoping: %+v", captured.Status)
	}
}

func TestListLeadsAdminKeepsCallerFilter(t *testing.T) {
	var captured lead.ListFilter

	store := &fakeLeadsStore{
		list: func(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error) {
			captured = filter
			return []lead.Lead{{ID: "l1"}, {ID: "l2"}}, nil
		},
	}

	r := newLeadsRouter(store, adminActor("admin-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads?assigned_to=sales-2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	if captured.AssignedTo == nil || *captured.AssignedTo != "sales-2" {
		t.Fatalf("admin filter should pass through: %+v", captured.AssignedTo)
	}

	var resp struct {
		Count int `json:"count"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal list response: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("count: got %d, want 2", resp.Count)
	}
}

func TestListLeadsRejectsInvalidStatusFilter(t *testing.T) {
	store := &fakeLeadsStore{}

	r := newLeadsRouter(store, adminActor("admin-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads?status=stalled", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestCreateLeadStampsCreator(t *testing.T) {
	var captured lead.Lead

	store := &fakeLeadsStore{
		create: func(ctx context.Context, l lead.Lead) (lead.Lead, error) {
			captured = l
			return l, nil
		},
	}

	r := newLeadsRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"name":"Acme Corp","phone":"+15550001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/leads", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	if captured.CreatedBy == nil || *captured.CreatedBy != "admin-1" {
		t.Fatalf("created_by not stamped: %+v", captured.CreatedBy)
	}

	if captured.Status != lead.StatusNew || captured.Source != lead.SourceManual {
		t.Fatalf("defaults not applied: status=%s source=%s", captured.Status, captured.Source)
	}

	if captured.ID == "" {
		t.Fatalf("lead id should be generated")
	}
}

func TestDeleteLeadForbiddenForSalesEvenWhenAssigned(t *testing.T) {
	deleted := false

	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{ID: id, AssignedTo: strPtr("sales-1")}, nil
		},
		delete: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}

	r := newLeadsRouter(store, salesActor("sales-1"))

	req := httptest.NewRequest(http.MethodDelete, "/api/leads/l1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusForbidden, w.Body.String())
	}

	if deleted {
		t.Fatalf("delete should not reach the store")
	}
}

func TestDeleteLeadByAdmin(t *testing.T) {
	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{ID: id}, nil
		},
		delete: func(ctx context.Context, id string) error {
			return nil
		},
	}

	r := newLeadsRouter(store, adminActor("admin-1"))

	req := httptest.NewRequest(http.MethodDelete, "/api/leads/l1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestUpdateLeadStatusByAssignee(t *testing.T) {
	var gotStatus lead.Status
	var gotNotes *string

	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{ID: id, AssignedTo: strPtr("sales-1"), Status: lead.StatusQualified}, nil
		},
		updateStatus: func(ctx context.Context, id string, status lead.Status, notes *string) (lead.Lead, error) {
			gotStatus = status
			gotNotes = notes
			return lead.Lead{ID: id, AssignedTo: strPtr("sales-1"), Status: status, UpdatedAt: time.Now().UTC()}, nil
		},
	}

	r := newLeadsRouter(store, salesActor("sales-1"))

	body := bytes.NewBufferString(`{"status":"won","notes":"signed today"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/leads/l1/status", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	if gotStatus != lead.StatusWon {
		t.Fatalf("status: got %s, want won", gotStatus)
	}

	if gotNotes == nil || *gotNotes != "signed today" {
		t.Fatalf("notes not forwarded: %+v", gotNotes)
	}
}

func TestUpdateLeadStatusRejectsUnknownStatus(t *testing.T) {
	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{ID: id}, nil
		},
	}

	r := newLeadsRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"status":"parked"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/leads/l1/status", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestUpdateLeadMissingIsNotFound(t *testing.T) {
	store := &fakeLeadsStore{
		getByID: func(ctx context.Context, id string) (lead.Lead, error) {
			return lead.Lead{}, lead.ErrNotFound
		},
	}

	r := newLeadsRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"name":"Renamed"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/leads/nope", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestExportLeadsScopedAndDownloadable(t *testing.T) {
	var captured lead.ListFilter

	store := &fakeLeadsStore{
		list: func(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error) {
			captured = filter
			return []lead.Lead{{ID: "l1", Name: "Acme", Phone: "+15550001",
				Status: lead.StatusNew, Source: lead.SourceManual}}, nil
		},
	}

	r := newLeadsRouter(store, salesActor("sales-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads/export/excel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	if captured.AssignedTo == nil || *captured.AssignedTo != "sales-1" {
		t.Fatalf("export not scoped to actor: %+v", captured.AssignedTo)
	}

	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename=leads_export.xlsx` {
		t.Fatalf("content disposition: %q", got)
	}

	wantType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	if got := w.Header().Get("Content-Type"); got != wantType {
		t.Fatalf("content type: %q", got)
	}

	if w.Body.Len() == 0 {
		t.Fatalf("export body should not be empty")
	}
}

func TestUploadLeadsSkipsBadRowsAndReports(t *testing.T) {
	created := 0

	store := &fakeLeadsStore{
		create: func(ctx context.Context, l lead.Lead) (lead.Lead, error) {
			created++
			return l, nil
		},
	}

	r := newLeadsRouter(store, adminActor("admin-1"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "leads.csv")

	if err != nil {
		t.Fatalf("form file: %v", err)
	}

	part.Write([]byte("name,phone\nAlice,+15550001\n,+15550002\nBob,+15550003\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/leads/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Count  int `json:"count"`
		Errors []struct {
			Row    int    `json:"row"`
			Reason string `json:"reason"`
		} `json:"errors"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal upload response: %v body=%s", err, w.Body.String())
	}

	if resp.Count != 2 || created != 2 {
		t.Fatalf("inserted: got count=%d created=%d, want 2", resp.Count, created)
	}

	if len(resp.Errors) != 1 || resp.Errors[0].Row != 2 {
		t.Fatalf("row errors: %+v", resp.Errors)
	}
}

func TestUploadLeadsRejectsUnknownFormat(t *testing.T) {
	store := &fakeLeadsStore{}

	r := newLeadsRouter(store, adminActor("admin-1"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "leads.pdf")
	part.Write([]byte("%PDF-1.4"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/leads/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}
