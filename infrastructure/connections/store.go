// Package connections persists API Gateway WebSocket connection records for
// the serverless push flavor. The long-running binary keeps connections in
// memory instead; only the lambdas use this store.
package connections

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// userIndex is the GSI keyed by GSI1PK=USER#<id>, used to find all live
// connections for one user.
const userIndex = "user-index"

// connectionTTL is how long a record may linger before DynamoDB expires it;
// disconnect normally removes it first.
const connectionTTL = 24 * time.Hour

// Connection is one live WebSocket connection.
type Connection struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	ConnectionID string `dynamodbav:"ConnectionID"`
	UserID       string `dynamodbav:"UserID"`
	Endpoint     string `dynamodbav:"Endpoint"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	ConnectedAt  string `dynamodbav:"ConnectedAt"`
	TTL          int64  `dynamodbav:"TTL"`
}

// Store reads and writes connection records in DynamoDB.
type Store struct {
	client *dynamodb.Client
	table  string
}

// NewStore creates a Store over the given table.
func NewStore(client *dynamodb.Client, table string) *Store {
	return &Store{client: client, table: table}
}

// Put registers a connection for a user.
func (s *Store) Put(ctx context.Context, connectionID, userID, endpoint string) error {
	now := time.Now()
	record := Connection{
		PK:           "CONNECTION#" + connectionID,
		SK:           "METADATA",
		ConnectionID: connectionID,
		UserID:       userID,
		Endpoint:     endpoint,
		GSI1PK:       "USER#" + userID,
		GSI1SK:       "CONNECTION#" + connectionID,
		ConnectedAt:  now.Format(time.RFC3339),
		TTL:          now.Add(connectionTTL).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal connection record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store connection %s: %w", connectionID, err)
	}
	return nil
}

// Delete removes a connection record, typically on disconnect or when the
// gateway reports the connection gone.
func (s *Store) Delete(ctx context.Context, connectionID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "CONNECTION#" + connectionID},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return fmt.Errorf("delete connection %s: %w", connectionID, err)
	}
	return nil
}

// ByUser returns all live connections for one user via the user GSI.
func (s *Store) ByUser(ctx context.Context, userID string) ([]Connection, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(userIndex),
		KeyConditionExpression: aws.String("GSI1PK = :userpk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userpk": &types.AttributeValueMemberS{Value: "USER#" + userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query connections for user %s: %w", userID, err)
	}

	var conns []Connection
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &conns); err != nil {
		return nil, fmt.Errorf("unmarshal connections: %w", err)
	}
	return conns, nil
}

// All returns every live connection, for global broadcasts.
func (s *Store) All(ctx context.Context) ([]Connection, error) {
	var conns []Connection

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan connections: %w", err)
		}
		var pageConns []Connection
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageConns); err != nil {
			return nil, fmt.Errorf("unmarshal connections: %w", err)
		}
		conns = append(conns, pageConns...)
	}
	return conns, nil
}
