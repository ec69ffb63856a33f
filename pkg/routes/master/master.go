package master

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/builder"
	appctx "github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/context"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

var validate = validator.New()

// Register registers master record routes
func Register(g *echo.Group) {
	g.POST("", Build)
	g.POST("/:id/resubmit", Resubmit)
	g.POST("/:id/approve", Approve)
	g.POST("/:id/reject", Reject)
	g.POST("/:id/compliance-approve", ComplianceApprove)
	g.POST("/:id/compliance-block", ComplianceBlock)
}

// Build builds and submits a master record from a duplicate group
func Build(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "master_handler.Build")
	defer span.End()

	tenantID, actor, err := callerFrom(ctx)
	if err != nil {
		return err
	}

	var req models.BuildMasterRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*builder.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder service")
	}

	resp, err := svc.BuildMaster(ctx, tenantID, actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Resubmit corrects a rejected master and returns it to review
func Resubmit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "master_handler.Resubmit")
	defer span.End()

	tenantID, actor, err := callerFrom(ctx)
	if err != nil {
		return err
	}

	var req models.ResubmitMasterRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*builder.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder service")
	}

	rec, err := svc.ResubmitMaster(ctx, tenantID, c.Param("id"), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Approve records a reviewer approval, optionally quarantining leftover
// group members
func Approve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "master_handler.Approve")
	defer span.End()

	tenantID, actor, err := callerFrom(ctx)
	if err != nil {
		return err
	}

	var req models.ApproveMasterRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*builder.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder service")
	}

	rec, err := svc.Approve(ctx, tenantID, c.Param("id"), actor, req.Note, req.QuarantineIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// Reject returns a pending master to data entry with a reason
func Reject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "master_handler.Reject")
	defer span.End()

	tenantID, actor, err := callerFrom(ctx)
	if err != nil {
		return err
	}

	var req models.DecisionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*builder.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder service")
	}

	rec, err := svc.Reject(ctx, tenantID, c.Param("id"), actor, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// ComplianceApprove marks an approved master golden and active
func ComplianceApprove(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "master_handler.ComplianceApprove")
	defer span.End()

	tenantID, actor, err := callerFrom(ctx)
	if err != nil {
		return err
	}

	var req models.NoteRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*builder.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder service")
	}

	rec, err := svc.ComplianceApprove(ctx, tenantID, c.Param("id"), actor, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// ComplianceBlock marks an approved master golden but blocked
func ComplianceBlock(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "master_handler.ComplianceBlock")
	defer span.End()

	tenantID, actor, err := callerFrom(ctx)
	if err != nil {
		return err
	}

	var req models.DecisionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*builder.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get builder service")
	}

	rec, err := svc.ComplianceBlock(ctx, tenantID, c.Param("id"), actor, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// callerFrom resolves the tenant and acting user from the request context.
func callerFrom(ctx context.Context) (string, models.Actor, error) {
	tenantID := appctx.GetTenantID(ctx)
	if tenantID == "" {
		return "", models.Actor{}, httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	role, err := models.ParseRole(appctx.GetUserRole(ctx))
	if err != nil {
		return "", models.Actor{}, httperror.NewHTTPError(http.StatusForbidden, "unknown or missing user role")
	}
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return "", models.Actor{}, httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}
	return tenantID, models.Actor{ID: userID, Role: role}, nil
}
