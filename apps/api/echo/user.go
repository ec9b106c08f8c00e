package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core/profile"
)

var errProfNotFoundInCtx = errors.New("profile object not found in echo.Context")

type userApi struct {
	svc      profile.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options) {
	api := userApi{
		svc:      opts.ProfileSvc,
		validate: opts.Validate,
	}

	ug := g.Group("/users", jwt, sess)

	ug.GET("/me", api.me)
	ug.GET("/roles", api.queryRoles)

	// admin endpoints
	ag := ug.Group("", adminMiddleware())
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.GET("/watch", api.watch)

	// detail endpoints
	dg := ag.Group("/:id", profileObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *userApi) me(ctx echo.Context) error {
	prof, err := getContextProfile(ctx, api.svc)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return errNotApproved
		}
		return errors.Wrap(err, "getting context profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *userApi) create(ctx echo.Context) error {
	var data profile.NewProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}

	actor, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	prof, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(profile.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.Profile{})
	}

	profs, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *userApi) update(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	var data profile.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	actor, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}

	prof, err = api.svc.Update(ctx.Request().Context(), actor, prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *userApi) destroy(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	// actor cannot delete themself
	actor, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context profile")
	}
	if prof.ID == actor.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), actor, prof.ID); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// watch pushes the filtered roster as server-sent events, one full
// snapshot per change.
func (api *userApi) watch(ctx echo.Context) error {
	var filter profile.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		filter = profile.QueryFilter{}
	}

	snaps, release, err := api.svc.Subscribe(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "subscribing to profiles")
	}
	defer release()
	return streamSnapshots(ctx, snaps)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, profile.Roles)
}

func profileObjectMiddleware(svc profile.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prof, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == profile.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding profile by ID")
			}
			ctx.Set("object", prof)
			return next(ctx)
		}
	}
}
