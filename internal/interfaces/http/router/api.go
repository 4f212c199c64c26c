package router

import (
	"github.com/erp/bizdesk/internal/interfaces/http/handler"
	"github.com/erp/bizdesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// APIHandlers holds the handlers served by the API. Files is optional and
// only set when documents are stored on the local filesystem.
type APIHandlers struct {
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Clients *handler.ClientHandler
	Quotes  *handler.QuoteHandler
	Orders  *handler.OrderHandler
	Company *handler.CompanyHandler
	Reports *handler.ReportHandler
	Events  *handler.EventsHandler
	Cache   *handler.CacheHandler
	System  *handler.SystemHandler
	Files   *handler.FileHandler
}

// RegisterAPI adds every domain group to r and the unversioned health check
// to the engine. Authentication is expected to run as engine middleware.
func RegisterAPI(engine *gin.Engine, r *Router, h APIHandlers) {
	engine.GET("/health", h.System.Health)

	admin := middleware.RequireAdmin()

	r.Register(NewDomainGroup("system", "").
		GET("/health", h.System.Health).
		GET("/system/info", h.System.GetSystemInfo))

	r.Register(NewDomainGroup("auth", "/auth").
		POST("/login", h.Auth.Login).
		POST("/refresh", h.Auth.Refresh).
		GET("/me", h.Auth.Me))

	r.Register(NewDomainGroup("users", "/users").
		GET("", admin, h.Users.List).
		POST("", admin, h.Users.Create).
		POST("/:id/disable", admin, h.Users.Disable).
		PUT("/me/password", h.Auth.ChangePassword))

	r.Register(NewDomainGroup("clients", "/clients").
		GET("", h.Clients.List).
		POST("", h.Clients.Create).
		GET("/:id", h.Clients.GetByID).
		PUT("/:id", h.Clients.Update).
		DELETE("/:id", h.Clients.Delete))

	r.Register(NewDomainGroup("quotes", "/quotes").
		GET("", h.Quotes.List).
		POST("", h.Quotes.Create).
		GET("/:id", h.Quotes.GetByID).
		DELETE("/:id", h.Quotes.Delete).
		PUT("/:id/items", h.Quotes.UpdateItems).
		POST("/:id/discount", h.Quotes.ApplyDiscount).
		POST("/:id/send", h.Quotes.Send).
		POST("/:id/approve", h.Quotes.Approve).
		POST("/:id/reject", h.Quotes.Reject).
		POST("/:id/convert", h.Quotes.Convert).
		GET("/:id/pdf", h.Quotes.PDF))

	r.Register(NewDomainGroup("orders", "/orders").
		GET("", h.Orders.List).
		GET("/:id", h.Orders.GetByID).
		DELETE("/:id", h.Orders.Delete).
		POST("/:id/start", h.Orders.Start).
		POST("/:id/complete", h.Orders.Complete).
		POST("/:id/cancel", h.Orders.Cancel).
		GET("/:id/pdf", h.Orders.PDF))

	r.Register(NewDomainGroup("company", "/company").
		GET("", h.Company.Get).
		PUT("", h.Company.Update).
		GET("/logo", h.Company.Logo).
		POST("/logo", h.Company.UploadLogo))

	r.Register(NewDomainGroup("reports", "/reports").
		GET("/:kind", h.Reports.Render))

	r.Register(NewDomainGroup("cache", "/cache").
		Use(admin).
		POST("/reload", h.Cache.Reload))

	r.Register(NewDomainGroup("events", "/events").
		GET("", h.Events.Stream))

	if h.Files != nil {
		r.Register(NewDomainGroup("files", "/files").
			GET("/*key", h.Files.Get))
	}

	r.Setup()
}
