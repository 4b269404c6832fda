package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
	"github.com/easyref/easyref-api/internal/core/service"
)

// ProfileHandler serves username claims, the public page and the owner's
// profile and settings.
type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Availability handles GET /v1/usernames/:username/availability.
// The answer is a hint; the claim itself is the only arbiter.
//
// @Summary      Check whether a username is free
// @Tags         profiles
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  availabilityResponse
// @Failure      400       {object}  errorResponse
// @Router       /v1/usernames/{username}/availability [get]
func (h *ProfileHandler) Availability(c echo.Context) error {
	username := domain.NormalizeUsername(c.Param("username"))
	ok, err := h.profiles.UsernameAvailable(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availabilityResponse{Username: username, Available: ok})
}

// Public handles GET /v1/profiles/:username.
//
// @Summary      Public profile of a creator
// @Tags         profiles
// @Produce      json
// @Param        username  path      string  true   "Username"
// @Param        q         query     string  false  "Search text (title, description or tag)"
// @Param        tag       query     string  false  "Active tag filter"
// @Success      200       {object}  domain.PublicProfile
// @Failure      404       {object}  errorResponse
// @Router       /v1/profiles/{username} [get]
func (h *ProfileHandler) Public(c echo.Context) error {
	pp, err := h.profiles.Public(c.Request().Context(), c.Param("username"), c.QueryParam("q"), c.QueryParam("tag"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pp)
}

// Claim handles POST /v1/profiles. A username is claimed once and never renamed.
//
// @Summary      Claim a username
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      claimRequest  true  "Username claim"
// @Success      201   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/profiles [post]
func (h *ProfileHandler) Claim(c echo.Context) error {
	privyID, err := ctxPrivyID(c)
	if err != nil {
		return err
	}
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	p, err := h.profiles.Claim(c.Request().Context(), domain.NewProfile{
		PrivyID:  privyID,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Me handles GET /v1/me: profile, lists, theme draft and quota banners.
//
// @Summary      Owner workspace
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  service.Snapshot
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws.Snapshot())
}

// UpdateSettings handles PATCH /v1/me. Absent fields are left untouched.
//
// @Summary      Update profile settings
// @Tags         me
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      settingsRequest  true  "Partial settings"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/me [patch]
func (h *ProfileHandler) UpdateSettings(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	p, err := ws.UpdateSettings(c.Request().Context(), req.toUpdate())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Preview handles GET /v1/me/preview: the public page with draft colors.
//
// @Summary      Preview the public page with the theme draft
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  false  "Search text"
// @Param        tag  query     string  false  "Active tag filter"
// @Success      200  {object}  domain.PublicProfile
// @Router       /v1/me/preview [get]
func (h *ProfileHandler) Preview(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, service.PreviewProfile(ws.Snapshot(), c.QueryParam("q"), c.QueryParam("tag")))
}
