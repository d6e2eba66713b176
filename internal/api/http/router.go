package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/societyops/society-service/internal/api/http/handlers"
	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Assignments    *handlers.AssignmentHandler
	Technicians    *handlers.TechniciansHandler
	Bills          *handlers.BillsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	protectedAuth.Post("/password/change", cfg.Users.ChangePassword)
	protectedAuth.Get("/me", cfg.Users.Me)

	issues := app.Group("/issues", cfg.AuthMiddleware.Handle, auth.RequireRole())
	issues.Post("", cfg.Issues.CreateIssue)
	issues.Get("", cfg.Issues.ListIssues)
	issues.Get("/:id", cfg.Issues.GetIssue)
	issues.Post("/:id/resolve", cfg.Issues.ResolveIssue)
	issues.Post("/:id/close", auth.RequireRole(domain.RoleAdmin), cfg.Issues.CloseIssue)
	issues.Post("/:id/cancel", auth.RequireRole(domain.RoleAdmin), cfg.Issues.CancelIssue)

	issues.Post("/:id/assign", cfg.Assignments.Assign)
	issues.Get("/:id/decision", cfg.Assignments.Decision)
	issues.Post("/:id/assignment/accept", cfg.Assignments.Accept)
	issues.Post("/:id/assignment/reject", cfg.Assignments.Reject)
	issues.Post("/:id/assignment/reschedule", cfg.Assignments.Reschedule)

	technicians := app.Group("/technicians", cfg.AuthMiddleware.Handle, auth.RequireRole())
	technicians.Get("", cfg.Technicians.List)
	technicians.Get("/:id", cfg.Technicians.Get)
	technicians.Patch("/:id/availability",
		auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), cfg.Technicians.UpdateAvailability)

	bills := app.Group("/bills", cfg.AuthMiddleware.Handle, auth.RequireRole())
	bills.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Bills.CreateBill)
	bills.Get("", cfg.Bills.ListBills)
	bills.Get("/analysis", auth.RequireRole(domain.RoleAdmin), cfg.Bills.Analysis)
	bills.Post("/:id/pay", cfg.Bills.PayBill)
	bills.Post("/:id/dispute", cfg.Bills.DisputeBill)

	app.Get("/notifications", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Notifications.Feed)
}
