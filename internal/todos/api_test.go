package todos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dhawalhost/permitkit/internal/rbac"
	"github.com/dhawalhost/permitkit/pkg/policy"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSubjects = `
subjects:
  - id: u1
    roles:
      - name: User
        permissions:
          - {resource: todos, action: view, policy: OWNER_OR_COLLABORATOR}
          - {resource: todos, action: delete, policy: DELETE_OWN_COMPLETED}
  - id: nobody
    roles: []
`

func newTestRouter(t *testing.T) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	src, err := rbac.ParseFile([]byte(testSubjects))
	if err != nil {
		t.Fatalf("subjects: %v", err)
	}
	store := NewStore(SeedData()...)
	r := gin.New()
	r.Use(policy.Identity(policy.IdentityConfig{Source: src}))
	NewHTTPHandler(store, policy.NewEngine(), zap.NewNop()).RegisterRoutes(r)
	return r, store
}

func request(r http.Handler, method, path, subject string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if subject != "" {
		req.Header.Set(policy.DefaultSubjectHeader, subject)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestListFiltersByViewPolicy(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := request(r, http.MethodGet, "/todos", "u1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Data []Todo `json:"data"`
		Meta struct {
			Total   int `json:"total"`
			Visible int `json:"visible"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta.Total != 3 || body.Meta.Visible != 2 {
		t.Fatalf("unexpected meta %+v", body.Meta)
	}
	if body.Data[0].ID != "t1" || body.Data[1].ID != "t3" {
		t.Fatalf("unexpected visible todos %+v", body.Data)
	}

	resp = request(r, http.MethodGet, "/todos", "nobody")
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta.Visible != 0 || len(body.Data) != 0 {
		t.Fatalf("subject without roles should see nothing, got %+v", body)
	}
}

func TestListRequiresSubject(t *testing.T) {
	r, _ := newTestRouter(t)
	if resp := request(r, http.MethodGet, "/todos", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestGetTodo(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		path string
		want int
	}{
		{"/todos/t1", http.StatusOK},
		{"/todos/t3", http.StatusOK},
		{"/todos/t2", http.StatusForbidden},
		{"/todos/t404", http.StatusNotFound},
	}
	for _, tt := range tests {
		if resp := request(r, http.MethodGet, tt.path, "u1"); resp.Code != tt.want {
			t.Fatalf("GET %s: expected %d, got %d", tt.path, tt.want, resp.Code)
		}
	}
}

func TestDeleteTodo(t *testing.T) {
	r, store := newTestRouter(t)

	if resp := request(r, http.MethodDelete, "/todos/t3", "u1"); resp.Code != http.StatusForbidden {
		t.Fatalf("collaborator must not delete, got %d", resp.Code)
	}
	if _, ok := store.Get("t3"); !ok {
		t.Fatal("denied delete removed the todo")
	}

	if resp := request(r, http.MethodDelete, "/todos/t1", "u1"); resp.Code != http.StatusNoContent {
		t.Fatalf("owner of completed todo should delete, got %d", resp.Code)
	}
	if _, ok := store.Get("t1"); ok {
		t.Fatal("todo still present after delete")
	}
	if resp := request(r, http.MethodDelete, "/todos/t1", "u1"); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}
