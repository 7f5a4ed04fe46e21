package httpx

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Context aliases echo.Context so callers can stay within httpx imports.
type Context = echo.Context

// HandlerFunc aliases echo.HandlerFunc.
type HandlerFunc = echo.HandlerFunc

// MiddlewareFunc aliases echo.MiddlewareFunc.
type MiddlewareFunc = echo.MiddlewareFunc

// App wraps an Echo instance and exposes route registration.
type App struct{ e *echo.Echo }

// New creates a new App instance.
func New() *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return &App{e: e}
}

// Use attaches middleware to the App instance.
func (a *App) Use(mw ...MiddlewareFunc) { a.e.Use(mw...) }

// Group creates a route group under prefix.
func (a *App) Group(prefix string, mw ...MiddlewareFunc) *Router {
	return NewRouter(a, prefix, mw...)
}

func (a *App) GET(path string, h HandlerFunc, mw ...MiddlewareFunc)    { a.e.GET(path, h, mw...) }
func (a *App) POST(path string, h HandlerFunc, mw ...MiddlewareFunc)   { a.e.POST(path, h, mw...) }
func (a *App) PUT(path string, h HandlerFunc, mw ...MiddlewareFunc)    { a.e.PUT(path, h, mw...) }
func (a *App) PATCH(path string, h HandlerFunc, mw ...MiddlewareFunc)  { a.e.PATCH(path, h, mw...) }
func (a *App) DELETE(path string, h HandlerFunc, mw ...MiddlewareFunc) { a.e.DELETE(path, h, mw...) }

// RecoverMiddleware returns Echo's recover middleware.
func RecoverMiddleware() MiddlewareFunc { return middleware.Recover() }

// CORSMiddleware builds a CORS middleware from the provided config; nil uses defaults.
func CORSMiddleware(cfg *middleware.CORSConfig) MiddlewareFunc {
	if cfg == nil {
		return middleware.CORSWithConfig(middleware.DefaultCORSConfig)
	}
	return middleware.CORSWithConfig(*cfg)
}

// HTTPError constructs an HTTP error for returning from handlers.
func HTTPError(code int, message any) error { return echo.NewHTTPError(code, message) }

// DefaultCORSConfig mirrors echo's default CORS configuration.
var DefaultCORSConfig = middleware.DefaultCORSConfig
