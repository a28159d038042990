package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIPrefix is the path every ledger resource is mounted under
const APIPrefix = "/api/v1"

// Registrar mounts a set of routes on a router group
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Route is one endpoint, relative to APIPrefix
type Route struct {
	Method string
	Path   string
}

// Resource collects the endpoints served under one path prefix, together
// with middleware that applies to those endpoints only.
type Resource struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []resourceRoute
}

type resourceRoute struct {
	Route
	handlers []gin.HandlerFunc
}

// NewResource starts a resource at prefix. An empty prefix mounts the routes
// directly under APIPrefix.
func NewResource(prefix string) *Resource {
	return &Resource{prefix: prefix}
}

// Use adds middleware run before every handler of the resource
func (r *Resource) Use(middleware ...gin.HandlerFunc) *Resource {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Handle adds an endpoint for method
func (r *Resource) Handle(method, path string, handlers ...gin.HandlerFunc) *Resource {
	r.routes = append(r.routes, resourceRoute{
		Route:    Route{Method: method, Path: path},
		handlers: handlers,
	})
	return r
}

func (r *Resource) GET(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodGet, path, handlers...)
}

func (r *Resource) POST(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodPost, path, handlers...)
}

func (r *Resource) PUT(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodPut, path, handlers...)
}

func (r *Resource) DELETE(path string, handlers ...gin.HandlerFunc) *Resource {
	return r.Handle(http.MethodDelete, path, handlers...)
}

// Routes lists the endpoints with the resource prefix applied
func (r *Resource) Routes() []Route {
	out := make([]Route, len(r.routes))
	for i, rt := range r.routes {
		out[i] = Route{Method: rt.Method, Path: joinPath(r.prefix, rt.Path)}
	}
	return out
}

// RegisterRoutes implements Registrar
func (r *Resource) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(r.prefix, r.middleware...)
	for _, rt := range r.routes {
		group.Handle(rt.Method, rt.Path, rt.handlers...)
	}
}

// Mount registers every registrar under APIPrefix
func Mount(engine *gin.Engine, registrars ...Registrar) {
	api := engine.Group(APIPrefix)
	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}
}

func joinPath(prefix, path string) string {
	joined := strings.TrimRight(prefix, "/") + path
	if joined == "" {
		return "/"
	}
	return joined
}
