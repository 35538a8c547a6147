// Package handler defines the HTTP handlers behind the web dashboard. The
// dashboard talks straight to the ledger repository and never goes through
// the orchestrator: a write made here does not advance the kiosk's scan flow.
// Both paths share the repository's per-call transactions, which is the only
// consistency guarantee between them.
package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openkiosk/container-tracker/internal/model"
	"github.com/openkiosk/container-tracker/internal/repository"
)

// DashboardHandler serves the reporting page, the registration forms and the
// JSON user listing.
type DashboardHandler struct {
	Repo *repository.LedgerRepo
}

// NewDashboardHandler returns a DashboardHandler bound to the given repo.
func NewDashboardHandler(repo *repository.LedgerRepo) *DashboardHandler {
	return &DashboardHandler{Repo: repo}
}

type userRow struct {
	ID      uint64
	Name    string
	BadgeID string
	Count   int // containers currently in this user's custody
}

type dashboardData struct {
	Users      []userRow
	Containers []model.ContainerView
	CheckedOut int
	Available  int
	Error      string
}

// Index handles GET / and renders the current ledger snapshot.
func (h *DashboardHandler) Index(c echo.Context) error {
	users, containers, err := h.Repo.ListAll(c.Request().Context())
	if err != nil {
		return c.String(http.StatusInternalServerError, "db error")
	}

	counts := map[uint64]int{}
	checkedOut := 0
	for _, cv := range containers {
		if cv.UserID != nil {
			counts[*cv.UserID]++
			checkedOut++
		}
	}

	data := dashboardData{
		Containers: containers,
		CheckedOut: checkedOut,
		Available:  len(containers) - checkedOut,
		Error:      c.QueryParam("error"),
	}
	for _, u := range users {
		data.Users = append(data.Users, userRow{ID: u.ID, Name: u.Name, BadgeID: u.BadgeID, Count: counts[u.ID]})
	}
	return c.Render(http.StatusOK, "dashboard", data)
}

// AddUser handles POST /add_user (form fields: name, badgeID).
func (h *DashboardHandler) AddUser(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	badge := strings.TrimSpace(c.FormValue("badgeID"))
	if name == "" || badge == "" {
		return redirectWithError(c, "name and badge ID are required")
	}
	if _, err := h.Repo.RegisterUser(c.Request().Context(), name, badge); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return redirectWithError(c, "a user with that name or badge ID already exists")
		}
		return redirectWithError(c, "could not add user")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// DeleteUser handles POST /delete_user/:id. Containers held by the user are
// released as part of the delete.
func (h *DashboardHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Repo.DeleteUser(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return redirectWithError(c, "user not found")
		}
		return redirectWithError(c, "could not delete user")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// AddContainer handles POST /add_container (form field: serial_number).
func (h *DashboardHandler) AddContainer(c echo.Context) error {
	serial := strings.TrimSpace(c.FormValue("serial_number"))
	if serial == "" {
		return redirectWithError(c, "serial number is required")
	}
	if _, err := h.Repo.RegisterContainer(c.Request().Context(), serial); err != nil {
		if errors.Is(err, repository.ErrContainerExists) {
			return redirectWithError(c, "a container with that serial number already exists")
		}
		return redirectWithError(c, "could not add container")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// DeleteContainer handles POST /delete_container/:id.
func (h *DashboardHandler) DeleteContainer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Repo.DeleteContainer(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrContainerNotFound) {
			return redirectWithError(c, "container not found")
		}
		return redirectWithError(c, "could not delete container")
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

type userJSON struct {
	ID         uint64   `json:"id"`
	Name       string   `json:"name"`
	BadgeID    string   `json:"badgeID"`
	Containers []string `json:"containers"`
}

// ListUsers handles GET /users and returns every user with the serial
// numbers of the containers currently in their custody.
func (h *DashboardHandler) ListUsers(c echo.Context) error {
	users, containers, err := h.Repo.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	serialsByUser := map[uint64][]string{}
	for _, cv := range containers {
		if cv.UserID != nil {
			serialsByUser[*cv.UserID] = append(serialsByUser[*cv.UserID], cv.SerialNumber)
		}
	}

	out := []userJSON{}
	for _, u := range users {
		row := userJSON{ID: u.ID, Name: u.Name, BadgeID: u.BadgeID, Containers: serialsByUser[u.ID]}
		if row.Containers == nil {
			row.Containers = []string{}
		}
		out = append(out, row)
	}
	return c.JSON(http.StatusOK, out)
}

func redirectWithError(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape(msg))
}
