package echo_test

import (
	"context"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	httpecho "github.com/mohammadpnp/catalog-import/internal/interfaces/http/echo"
)

type fakeImportUseCase struct {
	output app.StartCatalogImportOutput
	err    error
	got    app.StartCatalogImportInput
}

func (f *fakeImportUseCase) Execute(ctx context.Context, in app.StartCatalogImportInput) (app.StartCatalogImportOutput, error) {
	f.got = in
	if f.err != nil {
		return app.StartCatalogImportOutput{}, f.err
	}
	return f.output, nil
}

type fakeCancelUseCase struct {
	output app.CancelImportJobOutput
	err    error
}

func (f *fakeCancelUseCase) Execute(ctx context.Context, in app.CancelImportJobInput) (app.CancelImportJobOutput, error) {
	if f.err != nil {
		return app.CancelImportJobOutput{}, f.err
	}
	return f.output, nil
}

type fakeStatusUseCase struct {
	output app.StatusProjection
	err    error
	gotID  string
}

func (f *fakeStatusUseCase) Execute(ctx context.Context, in app.GetImportJobStatusInput) (app.StatusProjection, error) {
	f.gotID = in.ID
	if f.err != nil {
		return app.StatusProjection{}, f.err
	}
	return f.output, nil
}

type routeDeps struct {
	start  *fakeImportUseCase
	cancel *fakeCancelUseCase
	status *fakeStatusUseCase
	legacy *fakeStatusUseCase
}

func newTestServer(deps routeDeps) *echo.Echo {
	if deps.start == nil {
		deps.start = &fakeImportUseCase{}
	}
	if deps.cancel == nil {
		deps.cancel = &fakeCancelUseCase{}
	}
	if deps.status == nil {
		deps.status = &fakeStatusUseCase{}
	}
	if deps.legacy == nil {
		deps.legacy = &fakeStatusUseCase{}
	}

	e := echo.New()
	httpecho.RegisterRoutes(
		e,
		httpecho.NewImportHandler(deps.start, deps.cancel),
		httpecho.NewStatusHandler(deps.status, "id"),
		httpecho.NewStatusHandler(deps.legacy, "job_id"),
	)
	return e
}
