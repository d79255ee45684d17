package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/bizmarket/internal/notification"
)

// DynamoAPI is the part of *dynamodb.Client the notification store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoNotificationStore keeps the inbox in DynamoDB. New items reach the
// Lambda notifier through the table's Kinesis stream.
type DynamoNotificationStore struct {
	client    DynamoAPI
	tableName string
}

var _ notification.Store = (*DynamoNotificationStore)(nil)

// dynamoNotification is the item layout. Items of one recipient share a
// partition and sort by creation time.
type dynamoNotification struct {
	PK          string `dynamodbav:"pk"`
	SK          string `dynamodbav:"sk"`
	ID          string `dynamodbav:"id"`
	RecipientID int64  `dynamodbav:"recipient_id"`
	Title       string `dynamodbav:"title"`
	Message     string `dynamodbav:"message"`
	Link        string `dynamodbav:"link"`
	Category    string `dynamodbav:"category"`
	IsRead      bool   `dynamodbav:"is_read"`
	CreatedAt   string `dynamodbav:"created_at"`
}

func NewDynamoNotificationStore(client DynamoAPI, tableName string) *DynamoNotificationStore {
	return &DynamoNotificationStore{
		client:    client,
		tableName: tableName,
	}
}

func recipientKey(recipientID int64) string {
	return "USER#" + strconv.FormatInt(recipientID, 10)
}

func (s *DynamoNotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	createdAt := n.CreatedAt.UTC().Format(time.RFC3339Nano)
	item := dynamoNotification{
		PK:          recipientKey(n.RecipientID),
		SK:          createdAt + "#" + n.ID,
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Title:       n.Title,
		Message:     n.Message,
		Link:        n.Link,
		Category:    n.Category,
		IsRead:      n.IsRead,
		CreatedAt:   createdAt,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk) AND attribute_not_exists(sk)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put notification: %w", err)
	}
	return nil
}

func (s *DynamoNotificationStore) ListForUser(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]notification.Notification, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: recipientKey(recipientID)},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if unreadOnly {
		input.FilterExpression = aws.String("is_read = :unread")
		input.ExpressionAttributeValues[":unread"] = &types.AttributeValueMemberBOOL{Value: false}
	}

	var out []notification.Notification
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() && len(out) < limit {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query notifications: %w", err)
		}
		for _, item := range page.Items {
			n, err := unmarshalNotification(item)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *DynamoNotificationStore) MarkRead(ctx context.Context, recipientID int64, notificationID string) error {
	key, err := s.findKey(ctx, recipientID, notificationID)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              key,
		UpdateExpression: aws.String("SET is_read = :read"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":read": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// findKey looks the item up inside the recipient's partition, so ids of other
// recipients are never found.
func (s *DynamoNotificationStore) findKey(ctx context.Context, recipientID int64, notificationID string) (map[string]types.AttributeValue, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		FilterExpression:       aws.String("id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: recipientKey(recipientID)},
			":id": &types.AttributeValueMemberS{Value: notificationID},
		},
		ProjectionExpression: aws.String("pk, sk"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find notification: %w", err)
		}
		if len(page.Items) > 0 {
			return map[string]types.AttributeValue{
				"pk": page.Items[0]["pk"],
				"sk": page.Items[0]["sk"],
			}, nil
		}
	}
	return nil, notification.ErrNotFound
}

func unmarshalNotification(item map[string]types.AttributeValue) (notification.Notification, error) {
	var dn dynamoNotification
	if err := attributevalue.UnmarshalMap(item, &dn); err != nil {
		return notification.Notification{}, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, dn.CreatedAt)
	return notification.Notification{
		ID:          dn.ID,
		RecipientID: dn.RecipientID,
		Title:       dn.Title,
		Message:     dn.Message,
		Link:        dn.Link,
		Category:    dn.Category,
		IsRead:      dn.IsRead,
		CreatedAt:   createdAt,
	}, nil
}
