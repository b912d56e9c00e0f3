package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocklink/pos/internal/interfaces/http/handler"
	"github.com/stocklink/pos/internal/interfaces/http/middleware"
)

// RoleAdmin may edit the catalog and mail customers
const RoleAdmin = "admin"

// Handlers are the endpoint groups of the POS API
type Handlers struct {
	Sales     *handler.SaleHandler
	Products  *handler.ProductHandler
	Discounts *handler.DiscountHandler
	Payments  *handler.PaymentHandler
	Auth      *handler.AuthHandler
	Health    *handler.HealthHandler
}

// Options tune route level middleware
type Options struct {
	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter *middleware.RateLimiter
}

// POSGroups builds the domain groups of the POS API. Catalog edits, restock,
// discount mailing and password resets require the admin role.
func POSGroups(h Handlers, opts Options) []*DomainGroup {
	admin := middleware.RequireRole(RoleAdmin)

	sales := NewDomainGroup("sales", "/sales").
		Handle(http.MethodPost, "", "commit a sale", h.Sales.Commit).
		Handle(http.MethodGet, "", "list sales", h.Sales.List).
		Handle(http.MethodGet, "/analytics", "daily dashboard", h.Sales.Analytics).
		Handle(http.MethodPatch, "/stock/:id", "restock a product", admin, h.Sales.Restock).
		Handle(http.MethodGet, "/:id", "sale detail", h.Sales.Get).
		Handle(http.MethodGet, "/:id/receipt", "render a receipt", h.Sales.Receipt).
		Handle(http.MethodPost, "/:id/receipt/deliver", "redeliver a receipt", h.Sales.Redeliver).
		Handle(http.MethodGet, "/:id/deliveries", "delivery ledger", h.Sales.Deliveries)

	products := NewDomainGroup("products", "/products").
		Handle(http.MethodGet, "", "list products", h.Products.List).
		Handle(http.MethodPost, "", "create a product", admin, h.Products.Create).
		Handle(http.MethodPost, "/import", "import products from CSV", admin, h.Products.Import).
		Handle(http.MethodGet, "/low-stock", "products to reorder", h.Products.LowStock).
		Handle(http.MethodGet, "/:id", "product detail", h.Products.Get).
		Handle(http.MethodPut, "/:id", "update a product", admin, h.Products.Update).
		Handle(http.MethodDelete, "/:id", "delete a product", admin, h.Products.Delete)

	discounts := NewDomainGroup("discounts", "/discounts").
		Handle(http.MethodGet, "", "list discounts", h.Discounts.List).
		Handle(http.MethodPost, "", "create a discount", admin, h.Discounts.Create).
		Handle(http.MethodPost, "/notify", "mail active discounts", admin, h.Discounts.Notify)

	payments := NewDomainGroup("payments", "/payments")
	payments.Group("mobile-money", "/mobile-money").
		Handle(http.MethodPost, "", "request a confirmation", h.Payments.Request).
		Handle(http.MethodGet, "/:token", "poll a confirmation", h.Payments.Poll)

	login := []gin.HandlerFunc{h.Auth.Login}
	if opts.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.RateLimit(opts.LoginLimiter)}, login...)
	}
	authGroup := NewDomainGroup("auth", "/auth").
		Handle(http.MethodPost, "/register", "register an operator", h.Auth.Register).
		Handle(http.MethodPost, "/login", "issue an access token", login...).
		Handle(http.MethodPost, "/logout", "revoke the access token", h.Auth.Logout).
		Handle(http.MethodGet, "/me", "current operator", h.Auth.Me).
		Handle(http.MethodPost, "/reset-password", "reset a password", admin, h.Auth.ResetPassword)

	health := NewDomainGroup("health", "/health").
		Handle(http.MethodGet, "", "liveness and database ping", h.Health.Health)

	return []*DomainGroup{sales, products, discounts, payments, authGroup, health}
}

// SetupPOS mounts the POS API under the router's base path and an unversioned
// /health for load balancers. It returns every registered route.
func SetupPOS(engine *gin.Engine, h Handlers, opts Options, routerOpts ...RouterOption) []Route {
	r := NewRouter(engine, routerOpts...)
	var routes []Route
	for _, g := range POSGroups(h, opts) {
		r.Register(g)
		routes = append(routes, g.Routes(r.BasePath())...)
	}
	r.Setup()

	engine.GET("/health", h.Health.Health)
	routes = append(routes, Route{Method: http.MethodGet, Path: "/health", Description: "liveness and database ping"})
	return routes
}
