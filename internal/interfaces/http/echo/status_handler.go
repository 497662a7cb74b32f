package echo

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

// statusErrorBody is the flat error shape polling clients already parse.
type statusErrorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusHandler serves job status from one store. param names the path
// parameter carrying the job id ("id" natively, "job_id" on legacy routes).
type StatusHandler struct {
	useCase app.GetImportJobStatus
	param   string
}

func NewStatusHandler(useCase app.GetImportJobStatus, param string) *StatusHandler {
	if param == "" {
		param = "id"
	}
	return &StatusHandler{useCase: useCase, param: param}
}

func (h *StatusHandler) GetImportJobStatus(c echo.Context) error {
	out, err := h.useCase.Execute(c.Request().Context(), app.GetImportJobStatusInput{
		ID: c.Param(h.param),
	})
	if err != nil {
		if errors.Is(err, app.ErrImportJobNotFound) {
			return c.JSON(http.StatusNotFound, statusErrorBody{Error: "Job not found"})
		}

		body := statusErrorBody{Error: "Failed to retrieve job status"}
		switch {
		case errors.Is(err, domain.ErrStorageUnavailable):
			body.Message = "job store unavailable, retry later"
		case errors.Is(err, domain.ErrMalformedRecord):
			body.Message = "job record is malformed"
		}
		log.Printf("get import job status %s: %v", c.Param(h.param), err)
		return c.JSON(http.StatusInternalServerError, body)
	}

	return c.JSON(http.StatusOK, out)
}
