package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/easyref/easyref-api/internal/api/middleware"
	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/service"
)

// ctxWorkspace returns the workspace opened by LoadProfile. A missing value
// means the route was registered without the middleware.
func ctxWorkspace(c echo.Context) (*service.Workspace, error) {
	ws, ok := c.Get(middleware.ContextWorkspace).(*service.Workspace)
	if !ok || ws == nil {
		return nil, domain.ErrUnauthenticated
	}
	return ws, nil
}

func ctxPrivyID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextPrivyID).(string)
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}
