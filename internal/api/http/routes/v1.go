package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/cgscacau/green-belt-app-sub001/internal/api/http/middleware"
	"github.com/cgscacau/green-belt-app-sub001/internal/auth"
	authmw "github.com/cgscacau/green-belt-app-sub001/internal/auth/middleware"
	projectshttp "github.com/cgscacau/green-belt-app-sub001/internal/projects/http"
	"github.com/cgscacau/green-belt-app-sub001/internal/projects/repository"
)

type V1Deps struct {
	Repo *repository.ProjectRepository
	// Verifier checks Firebase ID tokens. When nil the caller is taken
	// from the X-User-Id header.
	Verifier       authmw.TokenVerifier
	RequestsPerSec float64
	Burst          int
	MaxUploadBytes int64
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())

	if dep.Verifier != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier))
	} else {
		api.Use(auth.DevUser())
	}
	if dep.RequestsPerSec > 0 {
		api.Use(middleware.NewRateLimiter(dep.RequestsPerSec, dep.Burst).Middleware())
	}

	projectshttp.New(dep.Repo, dep.MaxUploadBytes).Register(api)
}
