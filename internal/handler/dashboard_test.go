package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openkiosk/container-tracker/internal/database"
	"github.com/openkiosk/container-tracker/internal/handler"
	"github.com/openkiosk/container-tracker/internal/middleware"
	"github.com/openkiosk/container-tracker/internal/repository"
	"github.com/openkiosk/container-tracker/internal/router"
	"github.com/openkiosk/container-tracker/internal/utils"
	"github.com/openkiosk/container-tracker/internal/view"
)

func newTestServer(t *testing.T) (*echo.Echo, *repository.LedgerRepo) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.InitSchema(db, "sqlite3"))
	repo := repository.NewLedgerRepo(db)

	e := echo.New()
	e.Renderer = view.NewRenderer()
	router.Register(e, handler.NewDashboardHandler(repo), nil, middleware.RequireSession("", false))
	return e, repo
}

func postForm(e *echo.Echo, path, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func getUsers(t *testing.T, e *echo.Echo) []map[string]any {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAddUserAndListJSON(t *testing.T) {
	e, _ := newTestServer(t)

	rec := postForm(e, "/add_user", "name=Sam&badgeID=4321")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	users := getUsers(t, e)
	require.Len(t, users, 1)
	require.Equal(t, "Sam", users[0]["name"])
	require.Equal(t, "4321", users[0]["badgeID"])
	require.Empty(t, users[0]["containers"])
}

func TestAddUserDuplicateRedirectsWithError(t *testing.T) {
	e, _ := newTestServer(t)

	postForm(e, "/add_user", "name=Sam&badgeID=4321")
	rec := postForm(e, "/add_user", "name=Sam&badgeID=4321")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get(echo.HeaderLocation), "error=")
}

func TestUsersJSONIncludesHeldSerials(t *testing.T) {
	e, repo := newTestServer(t)

	postForm(e, "/add_user", "name=Sam&badgeID=4321")
	postForm(e, "/add_container", "serial_number=C100")
	_, err := repo.Checkout(context.Background(), "C100", "4321")
	require.NoError(t, err)

	users := getUsers(t, e)
	require.Len(t, users, 1)
	require.Equal(t, []any{"C100"}, users[0]["containers"])
}

func TestIndexRendersSnapshot(t *testing.T) {
	e, repo := newTestServer(t)

	postForm(e, "/add_user", "name=Sam&badgeID=4321")
	postForm(e, "/add_container", "serial_number=C100")
	postForm(e, "/add_container", "serial_number=C200")
	_, err := repo.Checkout(context.Background(), "C100", "4321")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Sam")
	require.Contains(t, body, "C100")
	require.Contains(t, body, "1 checked out")
	require.Contains(t, body, "1 available")
}

func TestDeleteContainer(t *testing.T) {
	e, repo := newTestServer(t)

	postForm(e, "/add_container", "serial_number=C100")
	c, err := repo.FindContainerBySerial(context.Background(), "C100")
	require.NoError(t, err)

	rec := postForm(e, "/delete_container/"+itoa(c.ID), "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, err = repo.FindContainerBySerial(context.Background(), "C100")
	require.ErrorIs(t, err, repository.ErrContainerNotFound)
}

func TestDeleteUserReleasesContainers(t *testing.T) {
	e, repo := newTestServer(t)

	postForm(e, "/add_user", "name=Sam&badgeID=4321")
	postForm(e, "/add_container", "serial_number=C100")
	_, err := repo.Checkout(context.Background(), "C100", "4321")
	require.NoError(t, err)
	u, err := repo.FindUserByBadge(context.Background(), "4321")
	require.NoError(t, err)

	rec := postForm(e, "/delete_user/"+itoa(u.ID), "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	c, err := repo.FindContainerBySerial(context.Background(), "C100")
	require.NoError(t, err)
	require.Nil(t, c.UserID)
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestSessionGuard(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.InitSchema(db, "sqlite3"))
	repo := repository.NewLedgerRepo(db)

	hash, err := utils.HashPassword("letmein", bcrypt.MinCost)
	require.NoError(t, err)
	const secret = "test-secret"

	e := echo.New()
	e.Renderer = view.NewRenderer()
	router.Register(e, handler.NewDashboardHandler(repo),
		handler.NewAuthHandler(hash, secret, 5),
		middleware.RequireSession(secret, true))

	// reads stay open
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// mutations require a session
	rec = postForm(e, "/add_user", "name=Sam&badgeID=4321")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// wrong password is rejected
	rec = postForm(e, "/login", "password=wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// login sets the session cookie
	rec = postForm(e, "/login", "password=letmein")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/add_user", strings.NewReader("name=Sam&badgeID=4321"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
