package bootstrap

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/metrics"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/catalog-import/internal/interfaces/http/echo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func NewHTTPServer(db *gorm.DB, cfg config.Config, importMetrics *metrics.ImportMetrics, gatherer prometheus.Gatherer) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s status=%d latency=%s request_id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	server.Use(middleware.BodyLimit("1M"))

	importJobRepo := repository.NewImportJobRepository(db)
	batchJobRepo := repository.NewBatchJobRepository(db)

	startImport := app.NewStartCatalogImport(importJobRepo, cfg.ImportMaxAttempts)
	cancelJob := app.NewCancelImportJob(importJobRepo)
	importHandler := httpecho.NewImportHandler(startImport, cancelJob)

	getStatus := app.NewGetImportJobStatus(importJobRepo, app.GetImportJobStatusConfig{
		Source:  "import_jobs",
		Timeout: cfg.StatusLookupTimeout,
		Metrics: importMetrics,
	})
	getLegacyStatus := app.NewGetImportJobStatus(batchJobRepo, app.GetImportJobStatusConfig{
		Source:  "batch_jobs",
		Timeout: cfg.StatusLookupTimeout,
		Metrics: importMetrics,
	})

	httpecho.RegisterRoutes(
		server,
		importHandler,
		httpecho.NewStatusHandler(getStatus, "id"),
		httpecho.NewStatusHandler(getLegacyStatus, "job_id"),
	)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return server
}
