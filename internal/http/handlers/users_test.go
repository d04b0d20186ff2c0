package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salesops/leadhub/internal/domain/user"
	"github.com/salesops/leadhub/internal/http/handlers"
	"github.com/salesops/leadhub/internal/http/middlewares"
)

type fakeUsersStore struct {
	create  func(ctx context.Context, u user.User) (user.User, error)
	getByID func(ctx context.Context, id string) (user.User, error)
	list    func(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error)
	update  func(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error)
	delete  func(ctx context.Context, id string) error
}

func (f *fakeUsersStore) Create(ctx context.Context, u user.User) (user.User, error) {
	return f.create(ctx, u)
}

func (f *fakeUsersStore) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getByID(ctx, id)
}

func (f *fakeUsersStore) List(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error) {
	return f.list(ctx, filter)
}

func (f *fakeUsersStore) Update(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error) {
	return f.update(ctx, id, req, passwordHash)
}

func (f *fakeUsersStore) Delete(ctx context.Context, id string) error {
	return f.delete(ctx, id)
}

func newUsersRouter(store handlers.UsersStore, u user.User) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middlewares.SetCurrentUser(c, u)
	})

	h := handlers.NewUsersHandler(store)

	r.POST("/api/users", h.CreateUser)
	r.GET("/api/users", h.ListUsers)
	r.GET("/api/users/:id", h.GetUser)
	r.PUT("/api/users/:id", h.UpdateUser)
	r.DELETE("/api/users/:id", h.DeleteUser)

	return r
}

func managerActor(id string) user.User {
	return user.User{ID: id, Email: id + "@example.com", Role: user.RoleManager, IsActive: true}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	store := &fakeUsersStore{}

	for _, actor := range []user.User{managerActor("mgr-1"), salesActor("sales-1")} {
		r := newUsersRouter(store, actor)

		body := bytes.NewBufferString(`{"email":"new@example.com","password":"secret123","full_name":"New Person"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/users", body)
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Fatalf("role %s: got status %d, want %d", actor.Role, w.Code, http.StatusForbidden)
		}
	}
}

func TestCreateUserDefaultsToSalesRole(t *testing.T) {
	var captured user.User

	store := &fakeUsersStore{
		create: func(ctx context.Context, u user.User) (user.User, error) {
			captured = u
			return u, nil
		},
	}

	r := newUsersRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"email":"new@example.com","password":"secret123","full_name":"New Person"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	if captured.Role != user.RoleSales {
		t.Fatalf("role: got %s, want sales", captured.Role)
	}

	if !captured.IsActive {
		t.Fatalf("new accounts start active")
	}

	if captured.PasswordHash == "" || captured.PasswordHash == "secret123" {
		t.Fatalf("password must be stored hashed")
	}

	// the hash never serializes
	if bytes.Contains(w.Body.Bytes(), []byte(captured.PasswordHash)) {
		t.Fatalf("response leaks the password hash: %s", w.Body.String())
	}
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	store := &fakeUsersStore{
		create: func(ctx context.Context, u user.User) (user.User, error) {
			return user.User{}, user.ErrEmailTaken
		},
	}

	r := newUsersRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"email":"dup@example.com","password":"secret123","full_name":"Dup"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}

	if code := decodeErrorCode(t, w.Body); code != "email_taken" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestUpdateUserSelfRule(t *testing.T) {
	tests := []struct {
		name     string
		actor    user.User
		targetID string
		want     int
	}{
		{"sales updates self", salesActor("sales-1"), "sales-1", http.StatusOK},
		{"sales updates other", salesActor("sales-1"), "sales-2", http.StatusForbidden},
		{"manager updates self", managerActor("mgr-1"), "mgr-1", http.StatusOK},
		{"manager updates other", managerActor("mgr-1"), "sales-1", http.StatusForbidden},
		{"admin updates anyone", adminActor("admin-1"), "sales-2", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUsersStore{
				update: func(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error) {
					return user.User{ID: id, FullName: "Updated", UpdatedAt: time.Now().UTC()}, nil
				},
			}

			r := newUsersRouter(store, tc.actor)

			body := bytes.NewBufferString(`{"full_name":"Updated"}`)
			req := httptest.NewRequest(http.MethodPut, "/api/users/"+tc.targetID, body)
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	var gotHash *string

	store := &fakeUsersStore{
		update: func(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error) {
			gotHash = passwordHash
			return user.User{ID: id}, nil
		},
	}

	r := newUsersRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"password":"brand-new-pass"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/users/sales-1", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	if gotHash == nil || *gotHash == "" || *gotHash == "brand-new-pass" {
		t.Fatalf("password should reach the store hashed, got %+v", gotHash)
	}
}

func TestUpdateUserMissingIsNotFound(t *testing.T) {
	store := &fakeUsersStore{
		update: func(ctx context.Context, id string, req user.UpdateUserRequest, passwordHash *string) (user.User, error) {
			return user.User{}, user.ErrNotFound
		},
	}

	r := newUsersRouter(store, adminActor("admin-1"))

	body := bytes.NewBufferString(`{"full_name":"Ghost"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/users/nope", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestListUsersVisibleToEveryRole(t *testing.T) {
	store := &fakeUsersStore{
		list: func(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error) {
			return []user.User{{ID: "u1"}, {ID: "u2"}}, nil
		},
	}

	for _, actor := range []user.User{adminActor("a"), managerActor("m"), salesActor("s")} {
		r := newUsersRouter(store, actor)

		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("role %s: got status %d, want %d", actor.Role, w.Code, http.StatusOK)
		}
	}
}

func TestListUsersRejectsInvalidRoleFilter(t *testing.T) {
	store := &fakeUsersStore{}

	r := newUsersRouter(store, adminActor("admin-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/users?role=superuser", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

func TestDeleteUserAdminOnly(t *testing.T) {
	store := &fakeUsersStore{
		delete: func(ctx context.Context, id string) error {
			return nil
		},
	}

	for _, tc := range []struct {
		actor user.User
		want  int
	}{
		{adminActor("admin-1"), http.StatusOK},
		{managerActor("mgr-1"), http.StatusForbidden},
		{salesActor("sales-1"), http.StatusForbidden},
	} {
		r := newUsersRouter(store, tc.actor)

		req := httptest.NewRequest(http.MethodDelete, "/api/users/u1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tc.want {
			t.Fatalf("role %s: got status %d, want %d", tc.actor.Role, w.Code, tc.want)
		}
	}
}

func TestGetUserReturnsRecord(t *testing.T) {
	store := &fakeUsersStore{
		getByID: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, Email: "u1@example.com", FullName: "User One", Role: user.RoleSales}, nil
		},
	}

	r := newUsersRouter(store, salesActor("sales-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/users/u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var got user.User

	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}

	if got.ID != "u1" || got.Email != "u1@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}
