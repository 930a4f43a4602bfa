package routes

import (
	"github.com/arenalink/tournament-platform/handlers"
	"github.com/arenalink/tournament-platform/middleware"
	"github.com/arenalink/tournament-platform/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Slot         *handlers.SlotHandler
	Audit        *handlers.AuditHandler
	WebSocket    *handlers.WebSocketHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret string, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	// Websocket-комната турнира: токен опционален, доска публичная.
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты; валидный токен расширяет видимость.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthenticateOptional(jwtSecret))
			r.Get("/", h.Tournament.List)
			r.Get("/{tournamentID}", h.Tournament.GetByID)
			r.Get("/{tournamentID}/slots", h.Slot.GetBoard)
		})

		// Маршруты авторизованных пользователей.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/{tournamentID}/registrations", h.Registration.Submit)
			r.Get("/{tournamentID}/registrations/me", h.Registration.GetOwn)
		})

		// Модерация и управление.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RoleAdmin, models.RoleModerator))
			r.Post("/", h.Tournament.Create)
			r.Patch("/{tournamentID}", h.Tournament.Update)
			r.Post("/{tournamentID}/groups", h.Tournament.CreateGroup)
			r.Post("/{tournamentID}/media/{kind}", h.Tournament.UploadMedia)
			r.Get("/{tournamentID}/registrations", h.Registration.ListByTournament)
			r.Post("/{tournamentID}/slots/initialize", h.Slot.InitializeSlots)
			r.Post("/{tournamentID}/slots/assign", h.Slot.AutoAssign)
			r.Post("/{tournamentID}/slots/assign-all", h.Slot.AutoAssignAll)
		})

		// Только администратор.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Delete("/{tournamentID}", h.Tournament.Delete)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		// Владелец видит свою заявку, модерация — любую (проверка в сервисе).
		r.Get("/{registrationID}", h.Registration.GetByID)
		r.Post("/{registrationID}/logo", h.Registration.UploadTeamLogo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleAdmin, models.RoleModerator))
			r.Post("/{registrationID}/review", h.Registration.Review)
		})
	})

	router.Route("/slots", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(models.RoleAdmin, models.RoleModerator))
		r.Post("/move", h.Slot.MoveOrSwap)
	})

	router.Route("/groups", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(models.RoleAdmin, models.RoleModerator))
		r.Delete("/{groupID}", h.Tournament.DeleteGroup)
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Get("/me", h.User.GetProfile)
		r.Post("/{userID}/avatar", h.User.UploadAvatar)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Get("/", h.User.List)
			r.Put("/{userID}/role", h.User.UpdateRole)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(models.RoleAdmin))
		r.Get("/audit", h.Audit.List)
	})
}
