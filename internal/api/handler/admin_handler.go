package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

type AdminHandler struct {
	profiles ports.ProfileService
	billing  ports.BillingService
}

func NewAdminHandler(profiles ports.ProfileService, billing ports.BillingService) *AdminHandler {
	return &AdminHandler{profiles: profiles, billing: billing}
}

// List handles GET /v1/admin/profiles.
//
// @Summary      Search profiles
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  false  "Username or email fragment"
// @Success      200  {array}   domain.Profile
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/profiles [get]
func (h *AdminHandler) List(c echo.Context) error {
	profiles, err := h.profiles.AdminList(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return c.JSON(http.StatusOK, profiles)
}

// SetTier handles PUT /v1/admin/profiles/:id/tier.
//
// @Summary      Change the tier of a profile
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Profile id"
// @Param        body  body      setTierRequest  true  "Tier and reason"
// @Success      200   {object}  domain.Profile
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/admin/profiles/{id}/tier [put]
func (h *AdminHandler) SetTier(c echo.Context) error {
	var req setTierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.billing.SetTier(c.Request().Context(), c.Param("id"), tier, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
