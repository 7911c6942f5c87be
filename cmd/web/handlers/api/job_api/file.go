package job_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"reeldrop.app/reeldrop/cmd/web/handlers/common"
)

func HandleFile(downloads Downloads) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		path, name, err := downloads.Fetch(id)
		if err != nil {
			slog.Info("file fetch rejected", "job_id", id, "error", err)
			return common.ErrorJSON(c, err)
		}
		return c.Attachment(path, name)
	}
}
