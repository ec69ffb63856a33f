package record

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appctx "github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/context"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/lifecycle"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/records"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

var validate = validator.New()

// Register registers record routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PATCH("/:id/fields", UpdateFields)
	g.POST("/:id/submit", Submit)
	g.GET("/:id/lineage", Lineage)
	g.GET("/:id/members", Members)
}

// List returns a page of active records
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.List")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, svc, err := ectoinject.GetContext[*records.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get records service")
	}

	resp, err := svc.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Create registers a new source record from data entry
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Create")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	var req models.CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*records.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get records service")
	}

	rec, err := svc.Create(ctx, tenantID, actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

// Get returns a record with its contacts, documents, and history
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Get")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*records.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get records service")
	}

	detail, err := svc.GetDetail(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateFields applies data-entry corrections to a rejected record
func UpdateFields(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.UpdateFields")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	var req models.UpdateRecordFieldsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*records.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get records service")
	}

	rec, err := svc.UpdateFields(ctx, tenantID, c.Param("id"), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Submit sends an updated record back to review
func Submit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Submit")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*lifecycle.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lifecycle service")
	}

	rec, err := svc.Transition(ctx, tenantID, c.Param("id"), models.ActionSubmit, actor, "", "")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Lineage returns a record's append-only history
func Lineage(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Lineage")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*records.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get records service")
	}

	resp, err := svc.Lineage(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Members returns the records folded into a master
func Members(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Members")
	defer span.End()

	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	ctx, svc, err := ectoinject.GetContext[*records.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get records service")
	}

	resp, err := svc.MasterMembers(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// actorFrom resolves the acting user from the request context. Role strings
// arrive from the auth layer and are translated at this boundary only.
func actorFrom(ctx context.Context) (models.Actor, error) {
	role, err := models.ParseRole(appctx.GetUserRole(ctx))
	if err != nil {
		return models.Actor{}, httperror.NewHTTPError(http.StatusForbidden, "unknown or missing user role")
	}
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return models.Actor{}, httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}
	return models.Actor{ID: userID, Role: role}, nil
}
