package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// sessionRecord is the DynamoDB shape of a session. The session body travels
// as JSON so the dialogue state never needs attributevalue tags; expiresAt
// drives the table's TTL sweep.
type sessionRecord struct {
	SessionID string `dynamodbav:"sessionId"`
	Body      string `dynamodbav:"body"`
	ExpiresAt int64  `dynamodbav:"expiresAt"`
}

// DynamoStore keeps sessions in a DynamoDB table, for deployments that run
// the webhook on Lambda and have no Redis nearby.
type DynamoStore struct {
	client dynamoAPI
	table  string
	ttl    time.Duration
	now    func() time.Time
}

// NewDynamoStore builds a store over the given client and table.
func NewDynamoStore(client dynamoAPI, table string, ttl time.Duration) *DynamoStore {
	if client == nil {
		panic("sessionstore: dynamodb client required")
	}
	if table == "" {
		panic("sessionstore: table name required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoStore{client: client, table: table, ttl: ttl, now: time.Now}
}

func (s *DynamoStore) Load(ctx context.Context, id string) (dialog.Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return dialog.Session{}, fmt.Errorf("sessionstore: fetch session: %w", err)
	}
	if out.Item == nil {
		return dialog.Session{}, ErrNotFound
	}

	var rec sessionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return dialog.Session{}, fmt.Errorf("sessionstore: decode record: %w", err)
	}
	// The TTL sweep is lazy; treat an expired record as gone.
	if rec.ExpiresAt > 0 && rec.ExpiresAt <= s.now().Unix() {
		return dialog.Session{}, ErrNotFound
	}

	var sess dialog.Session
	if err := json.Unmarshal([]byte(rec.Body), &sess); err != nil {
		return dialog.Session{}, fmt.Errorf("sessionstore: decode session: %w", err)
	}
	return sess, nil
}

func (s *DynamoStore) Save(ctx context.Context, sess dialog.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("sessionstore: session id required")
	}
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal session: %w", err)
	}
	item, err := attributevalue.MarshalMap(sessionRecord{
		SessionID: sess.ID,
		Body:      string(body),
		ExpiresAt: s.now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("sessionstore: marshal record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("sessionstore: persist session: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("sessionstore: delete session: %w", err)
	}
	return nil
}
