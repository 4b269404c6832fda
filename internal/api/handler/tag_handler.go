package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TagHandler manages the owner's tags.
type TagHandler struct{}

func NewTagHandler() *TagHandler {
	return &TagHandler{}
}

// List handles GET /v1/me/tags.
//
// @Summary      Owner tags with usage counts
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  tagListResponse
// @Router       /v1/me/tags [get]
func (h *TagHandler) List(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	snap := ws.Snapshot()
	return c.JSON(http.StatusOK, tagListResponse{Tags: snap.Tags, Quota: snap.Quota})
}

// Add handles POST /v1/me/tags. Adding an existing name returns that tag.
//
// @Summary      Add a tag
// @Tags         tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      tagRequest  true  "Tag name"
// @Success      200   {object}  tagResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/me/tags [post]
func (h *TagHandler) Add(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	tag, err := ws.AddTag(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tagResponse{Tag: tag, Quota: ws.Snapshot().Quota})
}

// RequestDelete handles POST /v1/me/tags/:id/confirmation.
//
// @Summary      Arm the delete of a tag
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tag id"
// @Success      200  {object}  confirmationResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/me/tags/{id}/confirmation [post]
func (h *TagHandler) RequestDelete(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := ws.RequestTagDelete(id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, confirmationResponse{ID: id, Armed: true})
}

// DismissDelete handles DELETE /v1/me/tags/:id/confirmation.
//
// @Summary      Dismiss a pending tag delete
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tag id"
// @Success      200  {object}  confirmationResponse
// @Router       /v1/me/tags/{id}/confirmation [delete]
func (h *TagHandler) DismissDelete(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	ws.DismissTagDelete(id)
	return c.JSON(http.StatusOK, confirmationResponse{ID: id, Armed: false})
}

// Delete handles DELETE /v1/me/tags/:id. A tag still used by referrals stays.
//
// @Summary      Delete a tag
// @Tags         tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Tag id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      428  {object}  errorResponse
// @Router       /v1/me/tags/{id} [delete]
func (h *TagHandler) Delete(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	if err := ws.DeleteTag(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
