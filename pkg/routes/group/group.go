package group

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	appctx "github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/context"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/grouping"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Register registers duplicate group routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:key/records", Records)
}

// List returns the open duplicate groups for the tenant
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "group_handler.List")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, svc, err := ectoinject.GetContext[*grouping.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get grouping service")
	}

	resp, err := svc.ListDuplicateGroups(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Records returns a group's member records with field quality scores
func Records(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "group_handler.Records")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*grouping.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get grouping service")
	}

	resp, err := svc.GetRecordsByKey(ctx, tenantID, c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
