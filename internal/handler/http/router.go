package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	// Logger receives the access log; it should use httplog.SchemaECS attrs
	Logger *slog.Logger
	// UploadsDir is served under /uploads when local storage is used
	UploadsDir string
}

type Handlers struct {
	Auth         AuthHandler
	Ticket       TicketHandler
	Attendance   AttendanceHandler
	Activity     ActivityHandler
	Notification NotificationHandler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	authenticated := []func(http.Handler) http.Handler{
		jwtauth.Verifier(JWTService.JWTAuth()),
		middleware.AuthRequired(JWTService),
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/notifications", func(r chi.Router) {
			// SSE authenticates with its own short-lived token
			r.Get("/stream", h.Notification.Stream)

			r.Group(func(r chi.Router) {
				r.Use(authenticated...)
				r.Get("/", h.Notification.List)
				r.Get("/unread-count", h.Notification.UnreadCount)
				r.Post("/read", h.Notification.MarkAsRead)
				r.Post("/sse-token", h.Notification.GetSSEToken)
			})
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(authenticated...)

			r.Route("/auth", func(r chi.Router) {
				r.Get("/me", h.Auth.Me)
				r.Post("/logout", h.Auth.Logout)
			})

			r.Route("/tickets", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionTicketCreate)).Post("/", h.Ticket.Create)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionTicketView))
					r.Get("/", h.Ticket.List)
					r.Get("/{id}", h.Ticket.Get)
					r.Get("/{id}/history", h.Ticket.History)
					r.Get("/{id}/transitions", h.Ticket.Transitions)
				})

				r.With(middleware.RequirePermission(user.PermissionTicketTransition)).Patch("/{id}/status", h.Ticket.UpdateStatus)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceCreate))
					r.Post("/check-in", h.Attendance.CheckIn)
					r.Post("/check-out", h.Attendance.CheckOut)
					r.Post("/{id}/re-check-in", h.Attendance.ReCheckIn)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceViewOwn))
					r.Get("/status", h.Attendance.Status)
					r.Get("/my", h.Attendance.GetMyAttendance)
				})

				r.With(middleware.RequirePermission(user.PermissionReportsView)).Get("/report", h.Attendance.Report)

				// Admin only
				r.With(middleware.AdminOnly).Put("/{id}", h.Attendance.Update)
			})

			r.Route("/activities", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionActivityLog))
					r.Post("/", h.Activity.Create)
					r.Get("/my", h.Activity.GetMyActivities)
					r.Post("/{id}/end", h.Activity.End)
					r.Post("/{id}/stages", h.Activity.CreateStage)
					r.Post("/stages/{stageID}/end", h.Activity.EndStage)
				})

				// Admins read stages of anyone's activity
				r.Get("/{id}/stages", h.Activity.ListStages)
			})
		})
	})
	return r
}
