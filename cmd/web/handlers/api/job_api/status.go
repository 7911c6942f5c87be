package job_api

import (
	"github.com/labstack/echo/v4"

	"reeldrop.app/reeldrop/cmd/web/handlers/common"
)

type statusView struct {
	Status              string `json:"status"`
	Progress            int    `json:"progress"`
	Message             string `json:"message"`
	RequestedResolution string `json:"requested_resolution"`
	AchievedResolution  string `json:"achieved_resolution,omitempty"`
	Filename            string `json:"filename,omitempty"`
	Error               string `json:"error,omitempty"`
}

func HandleStatus(downloads Downloads) echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := downloads.Poll(c.Param("id"))
		if err != nil {
			return common.ErrorJSON(c, err)
		}

		return c.JSON(200, statusView{
			Status:              string(job.Status),
			Progress:            job.Progress,
			Message:             job.Message,
			RequestedResolution: job.RequestedResolution,
			AchievedResolution:  job.AchievedResolution,
			Filename:            job.OutputFilename,
			Error:               job.ErrorDetail,
		})
	}
}
