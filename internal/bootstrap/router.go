package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/cgscacau/green-belt-app-sub001/internal/api/http"
	"github.com/cgscacau/green-belt-app-sub001/internal/api/http/routes"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/repository"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Backend        string
	AllowedOrigins []string
	Backends       *Backends
	Repo           *repository.ProjectRepository
	RequestsPerSec float64
	Burst          int
	MaxUploadBytes int64
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = dep.AllowedOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id", "X-User-Id")
	corsCfg.ExposeHeaders = []string{"X-Request-Id", "Content-Disposition"}
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Backend, dep.Backends.Pinger)
	healthHandler.RegisterRoutes(r)

	routes.RegisterV1(r, routes.V1Deps{
		Repo:           dep.Repo,
		Verifier:       dep.Backends.Verifier,
		RequestsPerSec: dep.RequestsPerSec,
		Burst:          dep.Burst,
		MaxUploadBytes: dep.MaxUploadBytes,
	})

	return r
}
