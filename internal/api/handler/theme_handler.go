package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/service"
	"github.com/easyref/easyref-api/internal/core/theme"
)

// ThemeHandler exposes the color draft of the owner's public page.
type ThemeHandler struct{}

func NewThemeHandler() *ThemeHandler {
	return &ThemeHandler{}
}

func themeReply(c echo.Context, ws *service.Workspace, st theme.State) error {
	return c.JSON(http.StatusOK, themeResponse{State: st, Preview: ws.Snapshot().Preview})
}

// Get handles GET /v1/me/theme.
//
// @Summary      Theme draft state
// @Tags         theme
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  themeResponse
// @Router       /v1/me/theme [get]
func (h *ThemeHandler) Get(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	return themeReply(c, ws, ws.Snapshot().Theme)
}

// SetField handles PATCH /v1/me/theme. Malformed colors are accepted into
// the draft and rejected on save.
//
// @Summary      Edit one draft color
// @Tags         theme
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      themeFieldRequest  true  "Field and value"
// @Success      200   {object}  themeResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/me/theme [patch]
func (h *ThemeHandler) SetField(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req themeFieldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	st, err := ws.SetThemeField(domain.ThemeField(req.Field), req.Value)
	if err != nil {
		return err
	}
	return themeReply(c, ws, st)
}

// Save handles POST /v1/me/theme/save.
//
// @Summary      Save the draft colors
// @Tags         theme
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  themeResponse
// @Failure      400  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /v1/me/theme/save [post]
func (h *ThemeHandler) Save(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	st, err := ws.SaveTheme(c.Request().Context())
	if err != nil {
		return err
	}
	return themeReply(c, ws, st)
}

// Reset handles POST /v1/me/theme/reset.
//
// @Summary      Revert the draft to the saved colors
// @Tags         theme
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  themeResponse
// @Router       /v1/me/theme/reset [post]
func (h *ThemeHandler) Reset(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	st, err := ws.ResetTheme()
	if err != nil {
		return err
	}
	return themeReply(c, ws, st)
}

// Cancel handles POST /v1/me/theme/cancel: like Reset, without notifying.
//
// @Summary      Discard the draft
// @Tags         theme
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  themeResponse
// @Router       /v1/me/theme/cancel [post]
func (h *ThemeHandler) Cancel(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	st, err := ws.CancelTheme()
	if err != nil {
		return err
	}
	return themeReply(c, ws, st)
}
