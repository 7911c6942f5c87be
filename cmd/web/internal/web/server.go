package web

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"reeldrop.app/reeldrop/cmd/web/handlers/api/job_api"
	"reeldrop.app/reeldrop/cmd/web/handlers/api/video_api"
	"reeldrop.app/reeldrop/cmd/web/handlers/content"
	staticpkg "reeldrop.app/reeldrop/cmd/web/internal/web/utils/static"
)

type Webserver struct {
	*echo.Echo
	resolver     video_api.SessionResolver
	downloads    job_api.Downloads
	muxAvailable func() bool
	staticCache  *staticpkg.StaticCache
}

func NewWebserver(resolver video_api.SessionResolver, downloads job_api.Downloads, muxAvailable func() bool) (*Webserver, error) {
	e := echo.New()

	// Initialize static cache
	staticCache, err := staticpkg.NewStaticCache()
	if err != nil {
		return nil, err
	}

	webserver := &Webserver{
		Echo:         e,
		resolver:     resolver,
		downloads:    downloads,
		muxAvailable: muxAvailable,
		staticCache:  staticCache,
	}

	webserver.registerRoutes()

	if err = webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Polling chatter drowns out everything else.
			switch c.Path() {
			case "/download_status/:id", "/healthz":
				return true
			default:
				return false
			}
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes() {
	s.GET("/", content.HandleHomePage())
	s.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	s.POST("/get_video_info", video_api.HandleInfo(s.resolver, s.muxAvailable))
	s.POST("/start_download", job_api.HandleCreate(s.downloads))
	s.GET("/download_status/:id", job_api.HandleStatus(s.downloads))
	s.GET("/download_file/:id", job_api.HandleFile(s.downloads))

	s.GET("/static/*", s.staticCache.ServeStaticFile("/static/"))
}
