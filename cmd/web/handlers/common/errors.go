// Package common holds helpers shared across handler packages.
package common

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"reeldrop.app/reeldrop/internal/jobs"
	"reeldrop.app/reeldrop/internal/media"
)

// ErrorJSON writes a JSON error body with a status derived from the domain
// error. Clients only ever see the remediation message, never internal text.
func ErrorJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), map[string]string{"error": messageFor(err)})
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, jobs.ErrBusy):
		return "Too many downloads in progress. Try again in a moment."
	case errors.Is(err, jobs.ErrJobNotFound):
		return "Download not found."
	case errors.Is(err, jobs.ErrJobNotReady):
		return "The download has not finished yet."
	case errors.Is(err, jobs.ErrArtifactMissing):
		return "This file has expired and was removed. Start the download again."
	}
	return media.Remediation(err)
}

// statusFor keeps the status surface deliberately small: 404 for things that
// don't exist (or no longer exist), 429 for queue backpressure, 400 for
// everything else including synchronous resolution failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, jobs.ErrArtifactMissing):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
