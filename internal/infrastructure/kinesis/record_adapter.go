package kinesis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/example/bizmarket/internal/notification"
)

// ConvertFromKinesisRecord converts a Kinesis record carrying a DynamoDB
// stream change of the notifications table into a Notification.
// Only INSERTs produce a notification; other changes return nil.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*notification.Notification, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record directly.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*notification.Notification, error) {
	// marking a notification read is a MODIFY and must not send mail again
	if record.EventName != "INSERT" {
		return nil, nil
	}
	return convertDynamoDBImage(record.Change.NewImage)
}

// convertDynamoDBImage maps the item written by the Dynamo notification store.
func convertDynamoDBImage(image map[string]events.DynamoDBAttributeValue) (*notification.Notification, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	n := &notification.Notification{}

	if v, ok := image["id"]; ok {
		n.ID = v.String()
	}
	if v, ok := image["recipient_id"]; ok {
		id, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse recipient_id: %w", err)
		}
		n.RecipientID = id
	}
	if v, ok := image["title"]; ok {
		n.Title = v.String()
	}
	if v, ok := image["message"]; ok {
		n.Message = v.String()
	}
	if v, ok := image["link"]; ok {
		n.Link = v.String()
	}
	if v, ok := image["category"]; ok {
		n.Category = v.String()
	}
	if v, ok := image["is_read"]; ok && v.DataType() == events.DataTypeBoolean {
		n.IsRead = v.Boolean()
	}
	if v, ok := image["created_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		n.CreatedAt = t
	}

	if n.ID == "" || n.RecipientID == 0 || n.Title == "" {
		return nil, fmt.Errorf("missing required fields: id=%q, recipient_id=%d, title=%q",
			n.ID, n.RecipientID, n.Title)
	}

	return n, nil
}

// BatchConvertFromKinesisEvent converts all records of a Kinesis event.
// Returns successfully converted notifications and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*notification.Notification, []error) {
	var out []*notification.Notification
	var errs []error

	for _, record := range kinesisEvent.Records {
		n, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if n != nil {
			out = append(out, n)
		}
	}

	return out, errs
}
