package main

import (
	"github.com/erp/posting/internal/infrastructure/auth"
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/erp/posting/internal/interfaces/http/middleware"
	"github.com/erp/posting/internal/interfaces/http/router"
)

type routeHandlers struct {
	journals    *handler.JournalHandler
	accounts    *handler.AccountHandler
	settings    *handler.SettingsHandler
	mappings    *handler.MappingHandler
	events      *handler.EventHandler
	deadLetters *handler.DeadLetterHandler
	outbox      *handler.OutboxHandler
	system      *handler.SystemHandler
}

// accountingRoutes builds the /accounting API. Every route checks a permission claim;
// event ingest additionally requires a service token.
func accountingRoutes(h routeHandlers) *router.DomainGroup {
	need := middleware.RequirePermission
	g := router.NewDomainGroup("accounting", "/accounting")

	g.Group("journal-entries", "/journal-entries").
		GET("", need(middleware.PermJournalRead), h.journals.List).
		POST("", need(middleware.PermJournalPost), h.journals.PostEntry).
		GET("/:id", need(middleware.PermJournalRead), h.journals.Get).
		POST("/:id/post", need(middleware.PermJournalPost), h.journals.PostDraft).
		POST("/:id/void", need(middleware.PermJournalVoid), h.journals.Void)

	g.Group("accounts", "/accounts").
		POST("", need(middleware.PermAccountManage), h.accounts.Create).
		GET("/tree", need(middleware.PermAccountRead), h.accounts.Tree).
		GET("/:id", need(middleware.PermAccountRead), h.accounts.Get).
		PATCH("/:id", need(middleware.PermAccountManage), h.accounts.Update).
		GET("/:id/changes", need(middleware.PermAccountRead), h.accounts.Changes).
		POST("/:id/merge", need(middleware.PermAccountManage), h.accounts.Merge).
		POST("/:id/deactivate", need(middleware.PermAccountManage), h.accounts.Deactivate)

	g.GET("/settings", need(middleware.PermSettingsRead), h.settings.Get).
		PUT("/settings", need(middleware.PermSettingsManage), h.settings.Update)

	g.Group("mappings", "/mappings").
		Use(need(middleware.PermMappingManage)).
		PUT("/sub-departments/:id", h.mappings.SaveSubDepartment).
		PUT("/payment-types/:code", h.mappings.SavePaymentType).
		PUT("/tax-groups/:id", h.mappings.SaveTaxGroup).
		PUT("/discounts/:classification", h.mappings.SaveDiscount)

	g.Group("unmapped-events", "/unmapped-events").
		Use(need(middleware.PermMappingManage)).
		GET("", h.mappings.ListUnmapped).
		GET("/counts", h.mappings.CountUnmapped)

	g.Group("events", "/events").
		POST("", middleware.RequireTokenType(auth.TokenTypeService), need(middleware.PermEventIngest), h.events.Ingest).
		POST("/replay", need(middleware.PermEventReplay), h.events.Replay)

	g.Group("dead-letters", "/dead-letters").
		GET("", need(middleware.PermDeadLetterRead), h.deadLetters.List).
		GET("/:id", need(middleware.PermDeadLetterRead), h.deadLetters.Get).
		POST("/:id/replay", need(middleware.PermDeadLetterFix), h.deadLetters.Replay).
		POST("/:id/resolve", need(middleware.PermDeadLetterFix), h.deadLetters.Resolve)

	system := g.Group("system", "/system")
	system.GET("/info", h.system.GetSystemInfo)
	system.Group("outbox", "/outbox").
		Use(need(middleware.PermOutboxManage)).
		GET("/dead", h.outbox.GetDeadEntries).
		POST("/dead/retry-all", h.outbox.RetryAllDeadEntries).
		GET("/stats", h.outbox.GetStats).
		GET("/:id", h.outbox.GetEntry).
		POST("/:id/retry", h.outbox.RetryDeadEntry)

	return g
}
