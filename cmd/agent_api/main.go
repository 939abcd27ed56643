package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/relaydesk/relaydesk/pkg/agent"
	"github.com/relaydesk/relaydesk/pkg/api"
	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/config"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

type agentRequest struct {
	Config chat.AgentConfigPatch `json:"config"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	cfg := config.Load()
	if !api.Authorized(request, cfg.APIToken) {
		return api.Error(http.StatusUnauthorized, "unauthorized")
	}
	conversationID, err := api.PathID(request)
	if err != nil {
		return api.Error(http.StatusBadRequest, "invalid conversation id")
	}

	db, err := gorm.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return api.Error(http.StatusInternalServerError, "database unavailable")
	}
	defer db.Close()

	orchestrator := agent.New(db, svc.NewLLMClient(cfg.LLM))

	switch request.HTTPMethod {
	case http.MethodPost:
		var body agentRequest
		if request.Body != "" {
			if err := json.Unmarshal([]byte(request.Body), &body); err != nil {
				return api.Error(http.StatusBadRequest, "invalid request body")
			}
		}
		result, err := orchestrator.CreateAgent(conversationID, body.Config)
		if err != nil {
			return api.ErrorFrom(err)
		}
		return api.JSON(http.StatusOK, result)

	case http.MethodPatch:
		var body agentRequest
		if err := json.Unmarshal([]byte(request.Body), &body); err != nil {
			return api.Error(http.StatusBadRequest, "invalid request body")
		}
		result, err := orchestrator.UpdateConfig(conversationID, body.Config)
		if err != nil {
			return api.ErrorFrom(err)
		}
		return api.JSON(http.StatusOK, result)

	case http.MethodDelete:
		if err := orchestrator.Disable(conversationID); err != nil {
			return api.ErrorFrom(err)
		}
		return api.JSON(http.StatusOK, map[string]string{"message": "agent disabled"})

	default:
		return api.Error(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func main() {
	lambda.Start(handler)
}
