package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, statusHandler, legacyStatusHandler *StatusHandler) {
	server.POST("/api/v1/imports/catalog", importHandler.ImportCatalog)
	server.GET("/import-jobs/:id", statusHandler.GetImportJobStatus)
	server.POST("/import-jobs/:id/cancel", importHandler.CancelImportJob)
	server.GET("/legacy/import-jobs/:job_id", legacyStatusHandler.GetImportJobStatus)
}
