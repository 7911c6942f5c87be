// package content serves the HTML shell of the single-page UI.
package content

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"reeldrop.app/reeldrop/static"
)

func HandleHomePage() echo.HandlerFunc {
	page, err := static.FS.ReadFile("index.html")
	return func(c echo.Context) error {
		if err != nil {
			return echo.ErrNotFound
		}
		return c.HTMLBlob(http.StatusOK, page)
	}
}
