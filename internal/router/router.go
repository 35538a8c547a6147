package router // package router defines how the dashboard's HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/openkiosk/container-tracker/internal/handler"
)

// Register wires the dashboard routes onto the provided Echo instance. guard
// protects the mutation routes; pass the passthrough returned by
// middleware.RequireSession when the dashboard runs without a password. auth
// may be nil, in which case no login routes are exposed.
func Register(e *echo.Echo, d *handler.DashboardHandler, auth *handler.AuthHandler, guard echo.MiddlewareFunc) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Read-only views. These stay open even when a password is configured so
	// a wall-mounted display can keep showing the snapshot.
	e.GET("/", d.Index)
	e.GET("/users", d.ListUsers)

	// Mutations go through the session guard.
	e.POST("/add_user", d.AddUser, guard)
	e.POST("/delete_user/:id", d.DeleteUser, guard)
	e.POST("/add_container", d.AddContainer, guard)
	e.POST("/delete_container/:id", d.DeleteContainer, guard)

	if auth != nil {
		e.POST("/login", auth.Login)
		e.POST("/logout", auth.Logout)
	}
}
