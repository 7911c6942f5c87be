// package job_api provides download job API handlers.
package job_api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"reeldrop.app/reeldrop/cmd/web/handlers/common"
	"reeldrop.app/reeldrop/internal/jobs"
)

// Downloads is the controller surface the handlers need.
type Downloads interface {
	Start(url, resolution string) (string, error)
	Poll(id string) (jobs.Job, error)
	Fetch(id string) (path, name string, err error)
}

func HandleCreate(downloads Downloads) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			URL        string `json:"url"`
			Resolution string `json:"resolution"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(400, map[string]string{"error": "invalid json"})
		}
		req.URL = strings.TrimSpace(req.URL)
		req.Resolution = strings.TrimSpace(req.Resolution)
		if req.URL == "" || req.Resolution == "" {
			return c.JSON(400, map[string]string{"error": "url and resolution are required"})
		}

		id, err := downloads.Start(req.URL, req.Resolution)
		if err != nil {
			slog.Warn("failed to start download", "error", err)
			return common.ErrorJSON(c, err)
		}

		return c.JSON(200, map[string]string{"download_id": id})
	}
}
