// Package main implements the WebSocket connection Lambda handler.
// It authenticates CONNECT requests with a JWT and tracks the
// connection in DynamoDB so the push Lambda can find it later.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"agenda-backend/infrastructure/connections"
	"agenda-backend/interfaces/http/rest/middleware"
)

// Initialized once per Lambda container
var (
	store    *connections.Store
	identity middleware.IdentityConfig
)

func init() {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	table := os.Getenv("CONNECTIONS_TABLE")
	if table == "" {
		table = "agenda-connections"
	}
	store = connections.NewStore(dynamodb.NewFromConfig(cfg), table)

	identity = middleware.IdentityConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: os.Getenv("JWT_ISSUER"),
	}
}

// tokenFrom extracts the JWT from the query string or the Authorization
// header. Browsers cannot set headers on WebSocket upgrades, so the
// query parameter is the primary path.
func tokenFrom(request events.APIGatewayWebsocketProxyRequest) string {
	if token := request.QueryStringParameters["token"]; token != "" {
		return token
	}
	if auth := request.Headers["Authorization"]; auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func handler(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := request.RequestContext.ConnectionID

	switch request.RequestContext.RouteKey {
	case "$disconnect":
		if err := store.Delete(ctx, connectionID); err != nil {
			log.Printf("Failed to delete connection %s: %v", connectionID, err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusInternalServerError,
				Body:       `{"error": "internal server error"}`,
			}, nil
		}
		log.Printf("Connection %s closed", connectionID)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil

	case "$connect":
		token := tokenFrom(request)
		if token == "" {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusUnauthorized,
				Body:       `{"error": "missing authentication token"}`,
			}, nil
		}

		userID, err := middleware.UserFromToken(token, identity)
		if err != nil {
			log.Printf("Authentication failed for connection %s: %v", connectionID, err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusUnauthorized,
				Body:       `{"error": "unauthorized"}`,
			}, nil
		}

		endpoint := fmt.Sprintf("https://%s/%s", request.RequestContext.DomainName, request.RequestContext.Stage)
		if err := store.Put(ctx, connectionID, userID, endpoint); err != nil {
			log.Printf("Failed to store connection %s: %v", connectionID, err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusInternalServerError,
				Body:       `{"error": "internal server error"}`,
			}, nil
		}

		body, _ := json.Marshal(map[string]interface{}{
			"type":      "connection_established",
			"userId":    userID,
			"timestamp": time.Now().Unix(),
		})
		log.Printf("Connection %s established for user %s", connectionID, userID)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: string(body)}, nil

	default:
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Body:       `{"error": "unsupported route"}`,
		}, nil
	}
}

func main() {
	lambda.Start(handler)
}
