package app

import (
	"gad-esmeraldas/pkg/config"
	"gad-esmeraldas/pkg/version"

	"github.com/danielgtaylor/huma/v2"
)

// NewAPIConfig returns the shared Huma configuration, including the bearer
// and cookie security schemes referenced by protected operations.
func NewAPIConfig() huma.Config {
	humaConfig := huma.DefaultConfig("GAD Esmeraldas Access API", version.Version)
	humaConfig.Info.Description = "Department-scoped access control for the procurement system"

	serverURL := config.GetEnv("PUBLIC_URL", "http://localhost:8080") + config.GetAPIPrefix()
	humaConfig.Servers = []*huma.Server{{URL: serverURL}}

	if humaConfig.Components.SecuritySchemes == nil {
		humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	humaConfig.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	humaConfig.Components.SecuritySchemes["cookieAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "cookie",
		Name: "gad_auth_token",
	}
	return humaConfig
}
