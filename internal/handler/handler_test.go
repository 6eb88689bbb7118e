package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/intervention-api/internal/cache"
	"github.com/iliyamo/intervention-api/internal/database/dbtest"
	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/handler"
	"github.com/iliyamo/intervention-api/internal/middleware"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/obs"
	"github.com/iliyamo/intervention-api/internal/queue"
	"github.com/iliyamo/intervention-api/internal/repository"
	"github.com/iliyamo/intervention-api/internal/router"
	"github.com/iliyamo/intervention-api/internal/service"
	"github.com/iliyamo/intervention-api/internal/session"
	"github.com/iliyamo/intervention-api/internal/utils"
)

var tokens = utils.TokenParams{Secret: "handler-secret", Issuer: "intervention-api", Audience: "intervention-clients", TTL: 10 * time.Minute}

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.AddUser(t, db, "admin", "Admin1!", model.RoleAdmin)
	dbtest.AddUser(t, db, "tom", "Techn1!", model.RoleTechnician)
	dbtest.AddUser(t, db, "ann", "Techn1!", model.RoleTechnician)
	dbtest.AddUser(t, db, "carol", "Client1!", model.RoleClient)

	store := repository.NewStore(db)
	mgr := service.NewInterventionManager(store, cache.NewMemory[dto.GetInterventionModel](cache.DefaultPolicy), queue.NopPublisher{})
	ids := service.NewIdentityService(store, session.NewMemoryStore(), tokens, time.Hour, bcrypt.MinCost)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(obs.NewLogger(io.Discard, "error"))
	router.RegisterRoutes(e, nil, nil)
	router.RegisterAuth(e, handler.NewAuthHandler(ids), tokens, nil)
	router.RegisterInterventions(e, handler.NewInterventionHandler(mgr), tokens, nil)
	return &api{t: t, e: e}
}

func (a *api) call(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) login(username, password string) dto.TokenPair {
	a.t.Helper()
	rec := a.call(http.MethodPost, "/private/auth/login", "", dto.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var p dto.TokenPair
	decode(a.t, rec, &p)
	return p
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	if rec := a.call(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	a := newAPI(t)

	rec := a.call(http.MethodPost, "/private/auth/register", "", dto.RegisterRequest{Username: "bob", Role: "Client", Email: "bob@example.com", Password: "Passw0rd!"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "User created") {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = a.call(http.MethodPost, "/private/auth/register", "", dto.RegisterRequest{Username: "BOB", Role: "Client", Email: "bob2@example.com", Password: "Passw0rd!"})
	var errs []dto.IdentityError
	decode(t, rec, &errs)
	if rec.Code != http.StatusBadRequest || len(errs) != 1 || errs[0].Code != "DuplicateUserName" {
		t.Fatalf("duplicate register: %d %+v", rec.Code, errs)
	}

	if rec := a.call(http.MethodPost, "/private/auth/login", "", dto.LoginRequest{Username: "bob", Password: "nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}

	first := a.login("bob", "Passw0rd!")
	rec = a.call(http.MethodGet, "/private/auth/me", first.Token, nil)
	var me dto.MeResponse
	decode(t, rec, &me)
	if me.Username != "bob" || len(me.Roles) != 1 || me.Roles[0] != model.RoleClient {
		t.Fatalf("me: %+v", me)
	}

	rec = a.call(http.MethodPost, "/private/auth/refresh", "", dto.RefreshRequest{RefreshToken: first.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	var second dto.TokenPair
	decode(t, rec, &second)

	if rec := a.call(http.MethodPost, "/private/auth/refresh", "", dto.RefreshRequest{RefreshToken: first.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: %d", rec.Code)
	}
	if rec := a.call(http.MethodPost, "/private/auth/logout", "", dto.RefreshRequest{RefreshToken: second.RefreshToken}); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := a.call(http.MethodPost, "/private/auth/refresh", "", dto.RefreshRequest{RefreshToken: second.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: %d", rec.Code)
	}
}

func TestInterventionLifecycle(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin", "Admin1!").Token

	body := `{"name":"Rewire","serviceType":"ElectricalWiring","materialType":"Copper","clientName":"carol","techniciansNames":["tom"]}`
	rec := a.call(http.MethodPost, "/intervention", admin, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var id uint64
	decode(t, rec, &id)

	rec = a.call(http.MethodGet, "/intervention/"+itoa(id), admin, nil)
	var got dto.GetInterventionModel
	decode(t, rec, &got)
	if rec.Code != http.StatusOK || got.ServiceType != model.ElectricalWiring || got.Client.Name != "carol" || len(got.Technicians) != 1 {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"serviceType":"ElectricalWiring"`) || !strings.Contains(rec.Body.String(), `"materialType":"Copper"`) {
		t.Fatalf("enums not rendered by name: %s", rec.Body.String())
	}

	update := `{"name":"Rewire","serviceType":3,"clientName":"carol","techniciansNames":["ann"]}`
	if rec := a.call(http.MethodPut, "/intervention/"+itoa(id), admin, update); rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	rec = a.call(http.MethodGet, "/intervention/"+itoa(id), admin, nil)
	decode(t, rec, &got)
	if got.MaterialType != nil || got.Technicians[0].Name != "ann" {
		t.Fatalf("update not visible: %s", rec.Body.String())
	}

	if rec := a.call(http.MethodDelete, "/intervention/"+itoa(id), admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := a.call(http.MethodGet, "/intervention/"+itoa(id), admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
	if rec := a.call(http.MethodDelete, "/intervention/"+itoa(id), admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete twice: %d", rec.Code)
	}
}

func TestInterventionValidationProblem(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin", "Admin1!").Token

	body := `{"name":"Roof","serviceType":"RoofingWork","clientName":"carol"}`
	if rec := a.call(http.MethodPost, "/intervention", admin, body); rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	dup := `{"name":"Roof","serviceType":"RoofingWork","clientName":"ghost","techniciansNames":["nobody"]}`
	rec := a.call(http.MethodPost, "/intervention", admin, dup, "Accept-Language", "en-GB")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var p middleware.Problem
	decode(t, rec, &p)
	if len(p.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %+v", p)
	}
	want := []string{"InterventionNameAlreadyExists", "ResourceNotFound", "ResourceNotFound"}
	for i, w := range want {
		if p.Errors[i].Code != w {
			t.Fatalf("error %d: expected %s, got %s", i, w, p.Errors[i].Code)
		}
	}
	if p.Errors[0].Message != "'Name' already exists." {
		t.Fatalf("message not localized: %q", p.Errors[0].Message)
	}

	rec = a.call(http.MethodPost, "/intervention", admin, "")
	decode(t, rec, &p)
	if rec.Code != http.StatusBadRequest || len(p.Errors) != 1 || p.Errors[0].Code != "ModelNotSupplied" {
		t.Fatalf("empty body: %d %s", rec.Code, rec.Body.String())
	}

	if rec := a.call(http.MethodPost, "/intervention", admin, `{"serviceType":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", rec.Code)
	}
	if rec := a.call(http.MethodPost, "/intervention", admin, `{"serviceType":"Gardening","clientName":"carol"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown enum name: %d", rec.Code)
	}
	if rec := a.call(http.MethodGet, "/intervention/abc", admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
	if rec := a.call(http.MethodPut, "/intervention/999", admin, `{"serviceType":1,"clientName":"carol"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rec.Code)
	}
}

func TestInterventionRequiredFields(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin", "Admin1!").Token

	for name, body := range map[string]string{
		"no service type":   `{"clientName":"carol"}`,
		"null service type": `{"name":"x","serviceType":null,"clientName":"carol"}`,
	} {
		rec := a.call(http.MethodPost, "/intervention", admin, body, "Accept-Language", "en")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d %s", name, rec.Code, rec.Body.String())
		}
		var p middleware.Problem
		decode(t, rec, &p)
		if len(p.Errors) != 1 || p.Errors[0].Code != "InconsistentModel" || p.Errors[0].Message != "'ServiceType' must be supplied." {
			t.Fatalf("%s: unexpected problem %+v", name, p)
		}
	}

	rec := a.call(http.MethodPost, "/intervention", admin, `{"name":"x","serviceType":"RoofingWork"}`)
	var p middleware.Problem
	decode(t, rec, &p)
	if rec.Code != http.StatusBadRequest || len(p.Errors) != 1 || p.Errors[0].Code != "ResourceNotFound" {
		t.Fatalf("no client: %d %s", rec.Code, rec.Body.String())
	}

	var rows []dto.InterventionModel
	decode(t, a.call(http.MethodGet, "/intervention", admin, nil), &rows)
	if len(rows) != 0 {
		t.Fatalf("rejected creates were stored: %+v", rows)
	}

	// The first enum member is a real choice when it is spelled out.
	if rec := a.call(http.MethodPost, "/intervention", admin, `{"serviceType":0,"clientName":"carol"}`); rec.Code != http.StatusOK {
		t.Fatalf("explicit ExcavationWork: %d %s", rec.Code, rec.Body.String())
	}
	decode(t, a.call(http.MethodGet, "/intervention", admin, nil), &rows)
	if len(rows) != 1 || rows[0].ServiceType == nil || *rows[0].ServiceType != model.ExcavationWork {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInterventionAccessControl(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin", "Admin1!").Token
	tech := a.login("tom", "Techn1!").Token
	client := a.login("carol", "Client1!").Token

	for _, b := range []string{
		`{"name":"A","serviceType":0,"clientName":"carol","techniciansNames":["tom"]}`,
		`{"name":"B","serviceType":1,"clientName":"carol","techniciansNames":["ann"]}`,
	} {
		if rec := a.call(http.MethodPost, "/intervention", admin, b); rec.Code != http.StatusOK {
			t.Fatalf("seed: %d %s", rec.Code, rec.Body.String())
		}
	}

	if rec := a.call(http.MethodGet, "/intervention", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	if rec := a.call(http.MethodPost, "/intervention", client, `{"serviceType":0,"clientName":"carol"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("client create: %d", rec.Code)
	}
	if rec := a.call(http.MethodDelete, "/intervention/1", tech, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("technician delete: %d", rec.Code)
	}

	var rows []dto.InterventionModel
	rec := a.call(http.MethodGet, "/intervention", tech, nil)
	decode(t, rec, &rows)
	if len(rows) != 1 || *rows[0].Name != "A" {
		t.Fatalf("technician search: %s", rec.Body.String())
	}

	rec = a.call(http.MethodGet, "/intervention", admin, nil)
	decode(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("admin search: %s", rec.Body.String())
	}

	rec = a.call(http.MethodGet, "/intervention", client, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("client search: %d %s", rec.Code, rec.Body.String())
	}
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
