// Package router registers the HTTP routes and their middleware chains.
package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/D191001/libra/internal/handler"
	"github.com/D191001/libra/internal/middleware"
)

// Deps are the handlers and middleware the routes are built from.  Cache
// and RateLimit may be nil.
type Deps struct {
	JWTSecret    string
	ReadyTimeout time.Duration

	DB     handler.Pinger
	Users  middleware.UserLookup
	Auth   *handler.AuthHandler
	Cat    *handler.CatalogHandler
	Issues *handler.BookIssueHandler

	Cache     *middleware.Cache
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes wires every endpoint onto e.
//
//	public:        /healthz /readyz /metrics /token /token/refresh /logout POST /users/
//	authenticated: GET /authors/:id /books/:id /genres/:id, /users/me/
//	active:        /book_issues/
//	admin:         catalog writes, POST /books/:id/stock
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.DB, d.ReadyTimeout))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/token", d.Auth.Token)
	e.POST("/token/refresh", d.Auth.Refresh)
	e.POST("/logout", d.Auth.Logout)
	e.POST("/users/", d.Auth.Register)

	authed := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), middleware.ResolveCaller(d.Users)}
	if d.RateLimit != nil {
		authed = append(authed, d.RateLimit)
	}
	r := routes{e: e, authed: authed}

	r.add(http.MethodGet, "/users/me/", d.Auth.Me)
	r.add(http.MethodPut, "/users/me/", d.Auth.UpdateMe)

	registerCatalog(r, d)

	// Issues and returns move available_copies, which GET /books/:id shows.
	active := middleware.RequireActive()
	books := d.Cache.Scope("books")
	r.add(http.MethodPost, "/book_issues/", d.Issues.Issue, active, books)
	r.add(http.MethodGet, "/book_issues/", d.Issues.List, active)
	r.add(http.MethodPut, "/book_issues/:id", d.Issues.Return, active, books)
}

// routes registers authenticated routes.  The chain is attached per route:
// an echo group would also put it in front of unknown paths.
type routes struct {
	e      *echo.Echo
	authed []echo.MiddlewareFunc
}

func (r routes) add(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	chain := make([]echo.MiddlewareFunc, 0, len(r.authed)+len(m))
	chain = append(chain, r.authed...)
	chain = append(chain, m...)
	r.e.Add(method, path, h, chain...)
}

// registerCatalog puts reads behind the response cache.  Writes share the
// cache scope of their resource so that a successful write invalidates it.
func registerCatalog(r routes, d Deps) {
	admin := middleware.RequireAdmin()

	authors := d.Cache.Scope("authors")
	r.add(http.MethodGet, "/authors/:id", d.Cat.GetAuthor, authors)
	r.add(http.MethodPost, "/authors/", d.Cat.CreateAuthor, admin, authors)
	r.add(http.MethodPut, "/authors/:id", d.Cat.UpdateAuthor, admin, authors)
	r.add(http.MethodDelete, "/authors/:id", d.Cat.DeleteAuthor, admin, authors)

	books := d.Cache.Scope("books")
	r.add(http.MethodGet, "/books/:id", d.Cat.GetBook, books)
	r.add(http.MethodPost, "/books/", d.Cat.CreateBook, admin, books)
	r.add(http.MethodPut, "/books/:id", d.Cat.UpdateBook, admin, books)
	r.add(http.MethodDelete, "/books/:id", d.Cat.DeleteBook, admin, books)
	r.add(http.MethodPost, "/books/:id/stock", d.Cat.AdjustStock, admin, books)

	genres := d.Cache.Scope("genres")
	r.add(http.MethodGet, "/genres/:id", d.Cat.GetGenre, genres)
	r.add(http.MethodPost, "/genres/", d.Cat.CreateGenre, admin, genres)
	r.add(http.MethodDelete, "/genres/:id", d.Cat.DeleteGenre, admin, genres)
}
