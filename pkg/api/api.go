package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/relaydesk/relaydesk/pkg/agent"
	"github.com/relaydesk/relaydesk/pkg/chat"
	"github.com/relaydesk/relaydesk/pkg/svc"
)

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// JSON renders a JSON response body with the given status
func JSON(status int, v interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Error(http.StatusInternalServerError, "encoding response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(body),
	}, nil
}

// Error renders the {"error": ...} envelope
func Error(status int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(body),
	}, nil
}

// ErrorFrom maps engine errors onto the HTTP error taxonomy
func ErrorFrom(err error) (events.APIGatewayProxyResponse, error) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, agent.ErrAgentNotEnabled):
		return Error(http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrInvalidConfig):
		return Error(http.StatusBadRequest, err.Error())
	case errors.Is(err, svc.ErrVendor):
		return Error(http.StatusInternalServerError, err.Error())
	default:
		return Error(http.StatusInternalServerError, err.Error())
	}
}

// Authorized checks the bearer token on a request
func Authorized(request events.APIGatewayProxyRequest, token string) bool {
	if token == "" {
		return false
	}
	header := request.Headers["Authorization"]
	if header == "" {
		header = request.Headers["authorization"]
	}
	return header == "Bearer "+token
}

// PathID extracts the numeric {id} path parameter, falling back to parsing
// the raw path for gateways that don't populate path parameters
func PathID(request events.APIGatewayProxyRequest) (uint, error) {
	raw, ok := request.PathParameters["id"]
	if !ok {
		segments := strings.Split(strings.Trim(request.Path, "/"), "/")
		for _, segment := range segments {
			if _, err := strconv.ParseUint(segment, 10, 64); err == nil {
				raw = segment
				break
			}
		}
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
