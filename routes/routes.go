package routes

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/routes/middlewares"
)

// Request bodies above this size fail to decode.
const maxBodyBytes = 100 << 10

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, middlewares.Observe(app.Metrics), middleware.Recoverer)
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: !slices.Contains(app.CORSOrigins, "*"),
		MaxAge:           300,
	}))

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogStatus(w, r, http.StatusNotFound, httpx.KindNotFound)
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.LogStatus(w, r, http.StatusMethodNotAllowed, httpx.KindBadRequest)
	})

	root.Handle("/metrics", app.Metrics.Handler())
	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	api.Use(middleware.Timeout(app.RequestTimeout), middleware.RequestSize(maxBodyBytes))

	api.Get("/health", Health("Server is healthy", app))

	api.Route("/auth", func(r chi.Router) {
		r.Post("/login", Login(app))
		r.Post("/register", Register(app))
	})

	api.Route("/survey", func(r chi.Router) {
		r.Get("/health", Health("Survey service is up and running", app))

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Auth(app))

			r.Get("/", ListUserSurveys(app))
			r.Get("/all", ListAllSurveys(app))
			r.Post("/create", CreateSurvey(app))
			r.Post("/update", UpdateSurvey(app))
			r.Get("/{id}", GetSurvey(app))
			r.Delete("/{id}", DeleteSurvey(app))
		})
	})

	api.Route("/response", func(r chi.Router) {
		r.Use(middlewares.Auth(app))

		r.Post("/add", AddResponse(app))
		r.Get("/{id}", GetResponse(app))
	})

	api.Route("/organization", func(r chi.Router) {
		r.Use(middlewares.Auth(app))

		r.Get("/", ListUserOrganizations(app))
		r.Get("/all", ListAllOrganizations(app))
		r.Post("/create", CreateOrganization(app))
		r.Get("/{id}", GetOrganization(app))
	})

	if app.IsDevelopment() {
		api.Post("/dev/create-dummy-user", CreateDummyUser(app))
	}

	return api
}
