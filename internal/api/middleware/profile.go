package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/service"
)

// ProfileResolver maps an authenticated identity to its profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, privyID string) (domain.Profile, error)
}

// WorkspaceOpener returns the workspace of a profile.
type WorkspaceOpener interface {
	Open(ctx context.Context, p domain.Profile) (*service.Workspace, error)
}

// LoadProfile resolves the caller's profile and opens its workspace. It must
// run after Auth. Callers without a claimed username get ErrProfileNotFound.
func LoadProfile(profiles ProfileResolver, workspaces WorkspaceOpener) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			privyID, _ := c.Get(ContextPrivyID).(string)
			if privyID == "" {
				return domain.ErrUnauthenticated
			}

			ctx := c.Request().Context()
			p, err := profiles.Resolve(ctx, privyID)
			if err != nil {
				return err
			}
			ws, err := workspaces.Open(ctx, p)
			if err != nil {
				return err
			}

			c.Set(ContextProfile, p)
			c.Set(ContextWorkspace, ws)
			return next(c)
		}
	}
}

// RequireAdmin lets only admin profiles through. It must run after LoadProfile.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := c.Get(ContextProfile).(domain.Profile)
			if !ok || !p.IsAdmin {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
