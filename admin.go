package parango

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/parangodev/parango/analytics"
	"github.com/parangodev/parango/site"
)

func (a *App) adminPage() Page {
	return a.page("/admin/", site.Metadata{Title: "Admin"})
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(AdminLoginData{
			Page:      a.adminPage(),
			CSRFToken: CsrfToken(c),
		}))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		a.loginLimiter.Reset(ip)
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(AdminLoginData{
		Page:      a.adminPage(),
		ShowError: true,
		CSRFToken: CsrfToken(c),
	}))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleAdminReindex reloads the content tree. Broken files are reported
// back on the dashboard instead of failing the request.
func (a *App) handleAdminReindex(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	msg := "reindexed"
	if err := a.Reload(c.Request().Context()); err != nil {
		var ce *ContentError
		if !errors.As(err, &ce) {
			return err
		}
		msg = ce.Error()
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	counts, err := a.Store.Counts()
	if err != nil {
		return err
	}
	indexedAt, err := a.Store.IndexedAt()
	if err != nil {
		return err
	}
	var stats *analytics.Stats
	if a.analytics != nil {
		if stats, err = a.analytics.Summary(c.Request().Context()); err != nil {
			c.Logger().Errorf("analytics summary: %v", err)
		}
	}
	return Render(c, a.Views.AdminDashboard(AdminData{
		Page:         a.adminPage(),
		CSRFToken:    CsrfToken(c),
		Message:      msg,
		Counts:       counts,
		IndexedAt:    indexedAt,
		Integrations: a.Config.Integrations.Names(),
		Stats:        stats,
	}))
}
