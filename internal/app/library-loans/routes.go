package libraryloans

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	adminloglist "github.com/magabrotheeeer/library-loans/internal/http/handlers/adminlog/list"
	"github.com/magabrotheeeer/library-loans/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/library-loans/internal/http/handlers/auth/register"
	bookcreate "github.com/magabrotheeeer/library-loans/internal/http/handlers/book/create"
	booklist "github.com/magabrotheeeer/library-loans/internal/http/handlers/book/list"
	bookread "github.com/magabrotheeeer/library-loans/internal/http/handlers/book/read"
	bookremove "github.com/magabrotheeeer/library-loans/internal/http/handlers/book/remove"
	categorycreate "github.com/magabrotheeeer/library-loans/internal/http/handlers/category/create"
	categorylist "github.com/magabrotheeeer/library-loans/internal/http/handlers/category/list"
	copycreate "github.com/magabrotheeeer/library-loans/internal/http/handlers/copy/create"
	copyremove "github.com/magabrotheeeer/library-loans/internal/http/handlers/copy/remove"
	"github.com/magabrotheeeer/library-loans/internal/http/handlers/health"
	loancreate "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/create"
	loanlist "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/list"
	loanlistall "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/listall"
	loanpostpone "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/postpone"
	loanreturn "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/returnloan"
	loanstart "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/start"
	loanterminate "github.com/magabrotheeeer/library-loans/internal/http/handlers/loan/terminate"
	policyread "github.com/magabrotheeeer/library-loans/internal/http/handlers/policy/read"
	policyupdate "github.com/magabrotheeeer/library-loans/internal/http/handlers/policy/update"
	userremove "github.com/magabrotheeeer/library-loans/internal/http/handlers/user/remove"
	waitlistenter "github.com/magabrotheeeer/library-loans/internal/http/handlers/waitlist/enter"
	waitlistexit "github.com/magabrotheeeer/library-loans/internal/http/handlers/waitlist/exit"
	waitlistposition "github.com/magabrotheeeer/library-loans/internal/http/handlers/waitlist/position"
	"github.com/magabrotheeeer/library-loans/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/library-loans/internal/services/auth"
	catalogservice "github.com/magabrotheeeer/library-loans/internal/services/catalog"
	loanservice "github.com/magabrotheeeer/library-loans/internal/services/loan"
	managerservice "github.com/magabrotheeeer/library-loans/internal/services/manager"
	waitlistservice "github.com/magabrotheeeer/library-loans/internal/services/waitlist"
)

// Services объединяет зависимости маршрутов.
type Services struct {
	Auth      *authservice.AuthService
	Loans     *loanservice.LoanService
	WaitList  *waitlistservice.WaitListService
	Catalog   *catalogservice.CatalogService
	Manager   *managerservice.ManagerService
	AdminLogs adminloglist.Service
	Health    health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/health", health.New(logger, s.Health).ServeHTTP)

		// Группа с JWT аутентификацией: читатели
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/loans", loancreate.New(logger, s.Loans).ServeHTTP)
			r.Get("/loans", loanlist.New(logger, s.Loans).ServeHTTP)
			r.Post("/loans/{id}/postpone", loanpostpone.New(logger, s.Loans).ServeHTTP)

			r.Post("/waitlist", waitlistenter.New(logger, s.WaitList).ServeHTTP)
			r.Get("/waitlist", waitlistposition.New(logger, s.WaitList).ServeHTTP)
			r.Delete("/waitlist/{id}", waitlistexit.New(logger, s.WaitList).ServeHTTP)

			r.Get("/books", booklist.New(logger, s.Catalog).ServeHTTP)
			r.Get("/books/{id}", bookread.New(logger, s.Catalog).ServeHTTP)
			r.Get("/categories", categorylist.New(logger, s.Catalog).ServeHTTP)
		})

		// Группа администратора: библиотекари
		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.AdminMiddleware(logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/loans", loanlistall.New(logger, s.Loans).ServeHTTP)
			r.Post("/loans/{id}/start", loanstart.New(logger, s.Loans).ServeHTTP)
			r.Post("/loans/{id}/return", loanreturn.New(logger, s.Loans).ServeHTTP)
			r.Post("/loans/{id}/terminate", loanterminate.New(logger, s.Loans).ServeHTTP)

			r.Post("/books", bookcreate.New(logger, s.Catalog).ServeHTTP)
			r.Delete("/books/{id}", bookremove.New(logger, s.Catalog).ServeHTTP)
			r.Post("/categories", categorycreate.New(logger, s.Catalog).ServeHTTP)
			r.Post("/copies", copycreate.New(logger, s.Catalog).ServeHTTP)
			r.Delete("/copies/{id}", copyremove.New(logger, s.Catalog).ServeHTTP)

			r.Get("/logs", adminloglist.New(logger, s.AdminLogs).ServeHTTP)
			r.Get("/policy", policyread.New(logger, s.Manager).ServeHTTP)
			r.Put("/policy", policyupdate.New(logger, s.Manager).ServeHTTP)
			r.Delete("/users/{uid}", userremove.New(logger, s.Auth).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
