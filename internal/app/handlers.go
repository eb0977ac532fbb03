package app

import (
	"github.com/interaktiv/kyra-assist/internal/actions"
	"github.com/interaktiv/kyra-assist/internal/audit"
	"github.com/interaktiv/kyra-assist/internal/chat"
	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/grounding"
	httpH "github.com/interaktiv/kyra-assist/internal/http/handlers"
	httpMW "github.com/interaktiv/kyra-assist/internal/http/middleware"
	"github.com/interaktiv/kyra-assist/internal/intent"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
	"github.com/interaktiv/kyra-assist/internal/server"
)

type Services struct {
	Chat    *chat.Service
	Actions *actions.Service
}

func wireServices(log *logger.Logger, clients Clients) (services Services, builder *grounding.Builder) {
	authz := content.RoleAuthorizer{}
	builder = grounding.NewBuilder(log, clients.Store, clients.Store)
	classifier := intent.NewDefaultClassifier()
	policy := chat.NewDefaultAnswerPolicy()

	chatService := chat.NewService(log, clients.Gateway, clients.ChatPrompt, builder, classifier, policy, authz)

	auditLog := audit.NewLog(log, clients.Store)
	planner := actions.NewPlanner(log, clients.PlannerPrompt)
	actionsService := actions.NewService(log, clients.Store, authz, planner, actions.NewPlanStore(), auditLog)

	return Services{Chat: chatService, Actions: actionsService}, builder
}

func wireRouter(log *logger.Logger, cfg Config, clients Clients, services Services, builder *grounding.Builder) *server.RouterConfig {
	authMW := httpMW.NewAuthMiddleware(log, cfg.JWTSecret)
	return &server.RouterConfig{
		ServiceName: "kyra-assist",
		CORSOrigins: cfg.CORSOrigins,

		AuthMiddleware: authMW,

		HealthHandler:       httpH.NewHealthHandler(),
		CapabilitiesHandler: httpH.NewCapabilitiesHandler(builder, content.RoleAuthorizer{}),
		ChatHandler:         httpH.NewChatHandler(log, services.Chat),
		ActionsHandler:      httpH.NewActionsHandler(services.Actions),
		PromptsHandler:      httpH.NewPromptsHandler(clients.Gateway),
		PromptFilesHandler:  httpH.NewPromptFilesHandler(clients.Gateway),
		SettingsHandler:     httpH.NewSettingsHandler(clients.Settings),
		AssistantRunHandler: httpH.NewAssistantRunHandler(log, clients.Gateway, clients.Cache),
	}
}
