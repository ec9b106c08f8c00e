package echoapi

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/auth"
	"github.com/yair681/pirhei-aharon/core/profile"
)

const (
	contextTokenKey   = "profileToken"
	contextProfileKey = "profile"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// StandardClaims.Id carries the server-side session record ID so a
// revoked session invalidates the token before it expires.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"`
	IsTeacher    bool   `json:"is_teacher,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
	IsSuperAdmin bool   `json:"is_super_admin,omitempty"`
}

func GetProfileClaims(conf *core.Config, prof profile.Profile, recordID string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   prof.ID,
			Id:        recordID,
			Audience:  conf.AppID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         prof.Name,
		Email:        prof.Email,
		Role:         prof.Role,
		IsStudent:    prof.IsStudent(),
		IsTeacher:    prof.IsTeacher(),
		IsAdmin:      prof.IsAdmin(),
		IsSuperAdmin: prof.IsSuperAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the profile Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextProfile(ctx echo.Context, svc profile.Service) (profile.Profile, error) {
	if prof, ok := ctx.Get(contextProfileKey).(profile.Profile); ok {
		return prof, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "getting context claims")
	}

	prof, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "finding profile by ID")
	}
	ctx.Set(contextProfileKey, prof)
	return prof, nil
}

// sessionMiddleware checks the token's session record is still live in
// the registry; a forced sign-out revokes the token immediately.
func sessionMiddleware(gate *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if err := gate.Verify(ctx.Request().Context(), claims.Subject, claims.Id); err != nil {
				if errors.Cause(err) == core.ErrSessionNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "verifying session")
			}
			return next(ctx)
		}
	}
}

type authApi struct {
	conf       *core.Config
	gate       *auth.Gate
	profileSvc profile.Service
	validate   *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt, sess echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		conf:       opts.Conf,
		gate:       opts.Gate,
		profileSvc: opts.ProfileSvc,
		validate:   opts.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.GET("/bootstrap", api.bootstrapStatus)
	ag.POST("/bootstrap", api.registerSuperAdmin)
	ag.POST("/login", api.login)

	// authed endpoints
	tg := ag.Group("", jwt, sess)
	tg.POST("/logout", api.logout)
	tg.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *authApi) bootstrapStatus(ctx echo.Context) error {
	required, err := api.profileSvc.BootstrapRequired(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "checking bootstrap status")
	}
	return ctx.JSON(http.StatusOK, BootstrapStatusResponse{Required: required})
}

func (api *authApi) registerSuperAdmin(ctx echo.Context) error {
	var data RegisterSuperAdminRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterSuperAdminRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prof, err := api.profileSvc.RegisterSuperAdmin(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "registering super admin")
	}

	// the freshly created identity is signed in; authorize it right away
	sess, err := api.gate.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authorizing bootstrapped session")
	}
	token, err := GenerateToken(api.conf, GetProfileClaims(api.conf, prof, sess.RecordID))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, Profile: prof})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.gate.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case core.ErrInvalidCredential:
			return errAuthenticationFailed
		case core.ErrNotApproved:
			return errNotApproved
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(api.conf, GetProfileClaims(api.conf, sess.Profile, sess.RecordID))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Profile: sess.Profile})
}

func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sess := auth.Session{
		State:    auth.Authorized,
		Identity: core.Identity{UID: claims.Subject, Email: claims.Email},
		RecordID: claims.Id,
	}
	if _, err := api.gate.Logout(ctx.Request().Context(), sess); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	prof, err := getContextProfile(ctx, api.profileSvc)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return errNotApproved
		}
		return errors.Wrap(err, "getting context profile")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(api.conf, GetProfileClaims(api.conf, prof, claims.Id, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Profile: prof})
}

type (
	BootstrapStatusResponse struct {
		Required bool `json:"required"`
	}

	RegisterSuperAdminRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string          `json:"token"`
		Profile profile.Profile `json:"profile"`
	}
)

func (r *RegisterSuperAdminRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email)
	return validate.Struct(r)
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email)
	return validate.Struct(r)
}
