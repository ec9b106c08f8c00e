package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core/profile"
	"github.com/yair681/pirhei-aharon/core/stream"
)

type streamApi struct {
	svc        stream.Service
	profileSvc profile.Service
	validate   *validator.Validate
}

func registerStreamAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options) {
	api := streamApi{
		svc:        opts.StreamSvc,
		profileSvc: opts.ProfileSvc,
		validate:   opts.Validate,
	}

	// the global board is readable without an authorized session
	g.GET("/announcements", api.publicAnnouncements)

	ag := g.Group("/announcements", jwt, sess)
	ag.POST("", api.postAnnouncement, staffMiddleware())
	ag.DELETE("/:id", api.deleteAnnouncement)

	cg := g.Group("/classes/:id", jwt, sess)
	cg.GET("/stream", api.classStream)
	cg.GET("/assignments", api.classAssignments)
	cg.POST("/assignments", api.createAssignment, staffMiddleware())

	g.DELETE("/assignments/:id", api.deleteAssignment, jwt, sess)
}

// Handlers

func (api *streamApi) publicAnnouncements(ctx echo.Context) error {
	anns, err := api.svc.PublicAnnouncements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying public announcements")
	}
	if anns == nil {
		anns = []stream.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *streamApi) postAnnouncement(ctx echo.Context) error {
	var data stream.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}

	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	ann, err := api.svc.PostAnnouncement(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "posting announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *streamApi) deleteAnnouncement(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err := api.svc.DeleteAnnouncement(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *streamApi) classStream(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	anns, err := api.svc.ClassStream(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class stream")
	}
	if anns == nil {
		anns = []stream.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *streamApi) classAssignments(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	asgs, err := api.svc.ClassAssignments(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class assignments")
	}
	if asgs == nil {
		asgs = []stream.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *streamApi) createAssignment(ctx echo.Context) error {
	var data stream.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	data.ClassID = ctx.Param("id")

	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *streamApi) deleteAssignment(ctx echo.Context) error {
	actor, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if err := api.svc.DeleteAssignment(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
