package analysis

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	analysisrepo "github.com/mkalnins/bryony/internal/repositories/analysis"
	bryonycontext "github.com/mkalnins/bryony/pkg/context"
	"github.com/mkalnins/bryony/pkg/events"
	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/resolver"
)

var validate = validator.New()

// Register registers analysis routes
func Register(g *echo.Group) {
	g.GET("/:id", GetAnalysis)
	g.POST("/:id/merge", MergeAnalysis)
	g.POST("/merge", MergeNewAnalysis)
}

// GetAnalysis returns the accumulated analysis document by id
func GetAnalysis(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*analysisrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "analysis not found")
	}

	return c.JSON(http.StatusOK, doc)
}

// MergeAnalysis merges one run's analysis input into an existing document,
// creating it under the given id when none exists yet
func MergeAnalysis(c echo.Context) error {
	return mergeAnalysis(c, c.Param("id"))
}

// MergeNewAnalysis merges into a fresh document with a generated id
func MergeNewAnalysis(c echo.Context) error {
	return mergeAnalysis(c, uuid.NewString())
}

func mergeAnalysis(c echo.Context, analysisID string) error {
	ctx := c.Request().Context()
	tenantID := bryonycontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant id is required")
	}

	var req models.MergeAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*analysisrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, res, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	existing, err := repo.Get(ctx, tenantID, analysisID)
	if err != nil {
		return err
	}

	doc, feedback := res.ResolveAndMergeAnalysis(existing, req.Input, analysisID)
	doc.TenantID = tenantID
	if req.OfficeID != "" {
		doc.OfficeID = req.OfficeID
	}

	if err := repo.Upsert(ctx, tenantID, doc); err != nil {
		return err
	}

	// Event publication is best effort on the HTTP path.
	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	_ = emitter.AnalysisMerged(ctx, tenantID, bryonycontext.GetScrapeRunID(ctx), analysisID, feedback)

	return c.JSON(http.StatusOK, models.MergeAnalysisResponse{
		Analysis: doc,
		Feedback: feedback,
	})
}
