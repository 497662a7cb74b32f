package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type ImportHandler struct {
	startImport app.StartCatalogImport
	cancelJob   app.CancelImportJob
}

type importOptionsRequest struct {
	DryRun               bool   `json:"dry_run"`
	UpsertKey            string `json:"upsert_key"`
	VariantMergeStrategy string `json:"variant_merge_strategy"`
	ForcePrune           bool   `json:"force_prune"`
	ImageStrategy        string `json:"image_strategy"`
	MappingProfileID     string `json:"mapping_profile_id"`
}

type importCatalogRequest struct {
	SourcePath     string               `json:"source_path"`
	TraceID        string               `json:"trace_id"`
	IdempotencyKey string               `json:"idempotency_key"`
	Options        importOptionsRequest `json:"options"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewImportHandler(startImport app.StartCatalogImport, cancelJob app.CancelImportJob) *ImportHandler {
	return &ImportHandler{startImport: startImport, cancelJob: cancelJob}
}

func (h *ImportHandler) ImportCatalog(c echo.Context) error {
	var req importCatalogRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "invalid request body",
		}})
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = c.Request().Header.Get("Idempotency-Key")
	}

	out, err := h.startImport.Execute(c.Request().Context(), app.StartCatalogImportInput{
		SourcePath:     req.SourcePath,
		TraceID:        traceID,
		IdempotencyKey: idempotencyKey,
		Options: domain.Options{
			DryRun:               req.Options.DryRun,
			UpsertKey:            domain.UpsertKey(req.Options.UpsertKey),
			VariantMergeStrategy: req.Options.VariantMergeStrategy,
			ForcePrune:           req.Options.ForcePrune,
			ImageStrategy:        req.Options.ImageStrategy,
			MappingProfileID:     req.Options.MappingProfileID,
		},
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidImportSource) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "invalid_source",
				Message: "source_path must be a .csv or .xlsx file",
			}})
		}
		if errors.Is(err, app.ErrInvalidImportOptions) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "invalid_options",
				Message: err.Error(),
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to enqueue import job",
		}})
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) CancelImportJob(c echo.Context) error {
	out, err := h.cancelJob.Execute(c.Request().Context(), app.CancelImportJobInput{
		ID: c.Param("id"),
	})
	if err != nil {
		if errors.Is(err, app.ErrImportJobNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "import job not found",
			}})
		}
		if errors.Is(err, app.ErrImportJobNotCancelable) {
			return c.JSON(http.StatusConflict, apiResponse{Error: &errorBody{
				Code:    "not_cancelable",
				Message: "import job already finished",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to cancel import job",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}
