package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easyref/easyref-api/internal/core/editor"
)

// ReferralHandler drives the referral editor of the owner's workspace.
type ReferralHandler struct{}

func NewReferralHandler() *ReferralHandler {
	return &ReferralHandler{}
}

// List handles GET /v1/me/referrals.
//
// @Summary      Owner referrals, newest first
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  referralListResponse
// @Router       /v1/me/referrals [get]
func (h *ReferralHandler) List(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	snap := ws.Snapshot()
	return c.JSON(http.StatusOK, referralListResponse{Referrals: snap.Referrals, Quota: snap.Quota})
}

// Create handles POST /v1/me/referrals. Refused at the referral quota.
//
// @Summary      Create a referral
// @Tags         referrals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      editor.Form  true  "Referral"
// @Success      201   {object}  referralResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /v1/me/referrals [post]
func (h *ReferralHandler) Create(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var form editor.Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	r, err := ws.CreateReferral(c.Request().Context(), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, referralResponse{Referral: r, Quota: ws.Snapshot().Quota})
}

// Update handles PUT /v1/me/referrals/:id. The body replaces every field.
//
// @Summary      Update a referral
// @Tags         referrals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "Referral id"
// @Param        body  body      editor.Form  true  "Referral"
// @Success      200   {object}  referralResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/me/referrals/{id} [put]
func (h *ReferralHandler) Update(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var form editor.Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	r, err := ws.UpdateReferral(c.Request().Context(), c.Param("id"), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, referralResponse{Referral: r, Quota: ws.Snapshot().Quota})
}

// RequestDelete handles POST /v1/me/referrals/:id/confirmation.
//
// @Summary      Arm the delete of a referral
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Referral id"
// @Success      200  {object}  confirmationResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/me/referrals/{id}/confirmation [post]
func (h *ReferralHandler) RequestDelete(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := ws.RequestReferralDelete(id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, confirmationResponse{ID: id, Armed: true})
}

// DismissDelete handles DELETE /v1/me/referrals/:id/confirmation.
//
// @Summary      Dismiss a pending referral delete
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Referral id"
// @Success      200  {object}  confirmationResponse
// @Router       /v1/me/referrals/{id}/confirmation [delete]
func (h *ReferralHandler) DismissDelete(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	ws.DismissReferralDelete(id)
	return c.JSON(http.StatusOK, confirmationResponse{ID: id, Armed: false})
}

// Delete handles DELETE /v1/me/referrals/:id. The delete must be armed first.
//
// @Summary      Delete a referral
// @Tags         referrals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Referral id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      428  {object}  errorResponse
// @Router       /v1/me/referrals/{id} [delete]
func (h *ReferralHandler) Delete(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	if err := ws.DeleteReferral(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
