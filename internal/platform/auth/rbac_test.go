package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, granted []string, required ...string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(context.Background(), "u1", granted))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return RequireRole(required...)(okHandler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	if err := runRequireRole(t, []string{RoleClinician}, RoleAdmin, RoleClinician); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	expectStatus(t, runRequireRole(t, []string{RoleClinician}, RoleAdmin), http.StatusForbidden)
}

func TestRequireRole_NoRoles(t *testing.T) {
	expectStatus(t, runRequireRole(t, nil, RoleClinician), http.StatusForbidden)
}

func TestRequireRole_AdminBypass(t *testing.T) {
	if err := runRequireRole(t, []string{RoleAdmin}, "auditor"); err != nil {
		t.Fatalf("admin should satisfy any role: %v", err)
	}
}

func TestUserIDFromContext(t *testing.T) {
	if UserIDFromContext(context.Background()) != "" {
		t.Error("expected empty user id")
	}
	ctx := WithUser(context.Background(), "dr-ahmed", nil)
	if UserIDFromContext(ctx) != "dr-ahmed" {
		t.Error("expected dr-ahmed")
	}
}
