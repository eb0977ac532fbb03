package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/interaktiv/kyra-assist/internal/http/handlers"
	httpMW "github.com/interaktiv/kyra-assist/internal/http/middleware"
)

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	CapabilitiesHandler *httpH.CapabilitiesHandler
	ChatHandler         *httpH.ChatHandler
	ActionsHandler      *httpH.ActionsHandler
	PromptsHandler      *httpH.PromptsHandler
	PromptFilesHandler  *httpH.PromptFilesHandler
	SettingsHandler     *httpH.SettingsHandler
	AssistantRunHandler *httpH.AssistantRunHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.AuthMiddleware != nil {
		r.Use(cfg.AuthMiddleware.Identify())
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Open to anonymous callers; privileged operations enforce their
	// own editor checks.
	if cfg.CapabilitiesHandler != nil {
		r.GET("/ai-capabilities", cfg.CapabilitiesHandler.Get)
	}
	if cfg.ChatHandler != nil {
		r.POST("/ai-chat", cfg.ChatHandler.Chat)
		r.POST("/ai-chat/stream", cfg.ChatHandler.ChatStream)
	}
	if cfg.ActionsHandler != nil {
		r.POST("/ai-actions/plan", cfg.ActionsHandler.Plan)
		r.POST("/ai-actions/apply", cfg.ActionsHandler.Apply)
	}

	protected := r.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Prompt management
		if cfg.PromptsHandler != nil {
			protected.GET("/ai-prompts", cfg.PromptsHandler.List)
			protected.POST("/ai-prompts", cfg.PromptsHandler.Create)
			protected.GET("/ai-prompts/:id", cfg.PromptsHandler.Get)
			protected.PATCH("/ai-prompts/:id", cfg.PromptsHandler.Update)
			protected.DELETE("/ai-prompts/:id", cfg.PromptsHandler.Delete)
		}

		// Prompt files
		if cfg.PromptFilesHandler != nil {
			protected.GET("/ai-prompt-files/:prompt_id", cfg.PromptFilesHandler.List)
			protected.POST("/ai-prompt-files/:prompt_id", cfg.PromptFilesHandler.Upload)
			protected.GET("/ai-prompt-files/:prompt_id/:file_id", cfg.PromptFilesHandler.Get)
			protected.DELETE("/ai-prompt-files/:prompt_id/:file_id", cfg.PromptFilesHandler.Delete)
			protected.GET("/ai-prompt-files-download/:prompt_id/:file_id", cfg.PromptFilesHandler.Download)
		}

		// Editor assistant
		if cfg.AssistantRunHandler != nil {
			protected.POST("/ai-assistant-run", cfg.AssistantRunHandler.Run)
		}

		// Settings
		if cfg.SettingsHandler != nil {
			protected.GET("/ai-settings", cfg.SettingsHandler.Get)
			protected.PATCH("/ai-settings", cfg.SettingsHandler.Patch)
		}
	}

	return r
}
