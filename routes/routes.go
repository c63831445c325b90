package routes

import (
	_ "embed"
	"net/http"

	"github.com/courtside/matchplay/handlers"
	"github.com/courtside/matchplay/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openapiSpec []byte

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	matchHandler *handlers.MatchHandler,
	inviteHandler *handlers.InviteHandler,
	listingHandler *handlers.ListingHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openapiSpec)
	})
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/matches", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/requests", matchHandler.CreateRequestHandler)
		r.Delete("/requests/{requestID}", matchHandler.CancelRequestHandler)
		r.Get("/requests/{requestID}/candidates", matchHandler.ListCandidatesHandler)
		r.Post("/requests/{requestID}/commit", matchHandler.CommitMatchHandler)
		r.Get("/suggestions", matchHandler.SuggestionsHandler)
	})

	router.Route("/invites", func(r chi.Router) {
		// Просмотр по коду публичен: ссылка из письма должна открываться
		// и без аккаунта.
		r.Get("/{code}", inviteHandler.LookupInviteHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", inviteHandler.CreateInviteHandler)
			r.Get("/sent", inviteHandler.ListSentHandler)
			r.Get("/received", inviteHandler.ListReceivedHandler)
			r.Post("/{code}/accept", inviteHandler.AcceptInviteHandler)
			r.Post("/{code}/decline", inviteHandler.DeclineInviteHandler)
			r.Delete("/{code}", inviteHandler.CancelInviteHandler)
		})
	})

	router.Route("/listings", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", listingHandler.CreateListingHandler)
		r.Get("/", listingHandler.ListListingsHandler)
		r.Delete("/{listingID}", listingHandler.DeleteListingHandler)
		r.Post("/{listingID}/contact", listingHandler.ContactListingHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/notifications", notificationHandler.ListNotificationsHandler)
		r.Get("/ws", webSocketHandler.ServeWs)
	})
}
