// Package main implements the notification push Lambda. It receives
// calendar change events from EventBridge, builds the matching
// notification and posts it to the tracked WebSocket connections via
// the API Gateway Management API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"agenda-backend/domain/calendar"
	"agenda-backend/domain/notification"
	"agenda-backend/infrastructure/connections"
)

// Initialized once per Lambda container
var (
	store      *connections.Store
	apiClients map[string]*apigatewaymanagementapi.Client
	awsCfg     aws.Config
)

func init() {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	awsCfg = cfg

	table := os.Getenv("CONNECTIONS_TABLE")
	if table == "" {
		table = "agenda-connections"
	}
	store = connections.NewStore(dynamodb.NewFromConfig(cfg), table)
	apiClients = make(map[string]*apigatewaymanagementapi.Client)
}

// clientFor returns a management API client for the connection's
// endpoint, caching clients across invocations.
func clientFor(endpoint string) *apigatewaymanagementapi.Client {
	if client, ok := apiClients[endpoint]; ok {
		return client
	}
	client := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	apiClients[endpoint] = client
	return client
}

// push posts the payload to one connection. Gone connections are
// pruned from the store and not reported as failures.
func push(ctx context.Context, conn connections.Connection, payload []byte) error {
	_, err := clientFor(conn.Endpoint).PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(conn.ConnectionID),
		Data:         payload,
	})
	if err != nil {
		var gone *apigwtypes.GoneException
		if errors.As(err, &gone) {
			log.Printf("Connection %s is gone, pruning", conn.ConnectionID)
			if delErr := store.Delete(ctx, conn.ConnectionID); delErr != nil {
				log.Printf("Failed to prune connection %s: %v", conn.ConnectionID, delErr)
			}
			return nil
		}
		return fmt.Errorf("post to connection %s: %w", conn.ConnectionID, err)
	}
	return nil
}

// deliver sends the notification to every connection, and again to the
// owner's connections as a user-addressed copy when the event has one.
func deliver(ctx context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	all, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}

	sent, failed := 0, 0
	for _, conn := range all {
		if err := push(ctx, conn, payload); err != nil {
			log.Printf("Broadcast failed: %v", err)
			failed++
			continue
		}
		sent++
	}

	if n.UserID != "" {
		owned, err := store.ByUser(ctx, n.UserID)
		if err != nil {
			log.Printf("Failed to list connections for user %s: %v", n.UserID, err)
		} else {
			for _, conn := range owned {
				if err := push(ctx, conn, payload); err != nil {
					log.Printf("User delivery failed: %v", err)
					failed++
					continue
				}
				sent++
			}
		}
	}

	log.Printf("Delivered notification %s: %d sent, %d failed", n.ID, sent, failed)
	if sent == 0 && failed > 0 {
		return fmt.Errorf("all deliveries failed for notification %s", n.ID)
	}
	return nil
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	log.Printf("Processing %s event %s", event.DetailType, event.ID)

	var change calendar.ChangeEvent
	if err := json.Unmarshal(event.Detail, &change); err != nil {
		return fmt.Errorf("parse event detail: %w", err)
	}
	switch change.Kind {
	case notification.KindCreated, notification.KindUpdated, notification.KindDeleted, notification.KindAIExtracted:
	default:
		log.Printf("Dropping change event %s with unknown type %q", event.ID, change.Kind)
		return nil
	}
	if change.Title == "" {
		log.Printf("Dropping change event %s without a title", event.ID)
		return nil
	}

	n := notification.New(
		change.Kind,
		change.UserID,
		change.Title,
		notification.MessageFor(change.Kind, change.Title),
		change.ID,
	)
	return deliver(ctx, n)
}

func main() {
	lambda.Start(handler)
}
