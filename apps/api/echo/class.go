package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core/class"
	"github.com/yair681/pirhei-aharon/core/profile"
)

type classApi struct {
	svc        class.Service
	profileSvc profile.Service
	validate   *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options) {
	api := classApi{
		svc:        opts.ClassSvc,
		profileSvc: opts.ProfileSvc,
		validate:   opts.Validate,
	}

	cg := g.Group("/classes", jwt, sess)

	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware())
	cg.GET("/watch", api.watch, adminMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, staffMiddleware())

	mg := dg.Group("/members", staffMiddleware())
	mg.POST("", api.addMember)
	mg.DELETE("", api.removeMember)
	mg.GET("/eligible", api.eligibleMembers)
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	classes, err := api.svc.VisibleTo(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}

	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	cls, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

// watch pushes the class list as server-sent events, one full snapshot
// per change.
func (api *classApi) watch(ctx echo.Context) error {
	snaps, release, err := api.svc.Subscribe(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "subscribing to classes")
	}
	defer release()
	return streamSnapshots(ctx, snaps)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	cls, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	// visibility: members and staff only
	if !(actor.IsAdmin() || cls.HasMember(actor.ID)) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) addMember(ctx echo.Context) error {
	var data MembershipRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MembershipRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	cls, err := api.svc.AddMember(ctx.Request().Context(), actor, ctx.Param("id"), data.UserID, data.Role)
	if err != nil {
		return errors.Wrap(err, "adding member")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) removeMember(ctx echo.Context) error {
	var data MembershipRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MembershipRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	cls, err := api.svc.RemoveMember(ctx.Request().Context(), actor, ctx.Param("id"), data.UserID, data.Role)
	if err != nil {
		return errors.Wrap(err, "removing member")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) eligibleMembers(ctx echo.Context) error {
	role := ctx.QueryParam("role")
	profs, err := api.svc.EligibleMembers(ctx.Request().Context(), ctx.Param("id"), role)
	if err != nil {
		return errors.Wrap(err, "querying eligible members")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

type MembershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=student teacher"`
}
