// Package dynamodb exports documents into a DynamoDB table.
//
// Every document becomes one item keyed by the export prefix and the
// document id. The stored form goes into a binary attribute together with
// the time of the export.
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name docgo-exports \
//	  --attribute-definitions AttributeName=prefix,AttributeType=S AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=prefix,KeyType=HASH AttributeName=name,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/docgo/export"
)

// Attribute names of exported items.
const (
	AttrPrefix     = "prefix"
	AttrName       = "name"
	AttrData       = "data"
	AttrExportedAt = "exported_at"
)

// maxItemSize is the DynamoDB item size limit.
const maxItemSize = 400 * 1024

// ErrItemTooLarge is returned for documents that do not fit into one item.
var ErrItemTooLarge = errors.New("document exceeds the dynamodb item size limit")

// Client is the subset of the DynamoDB API used by the sink.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Sink implements export.Sink for DynamoDB.
type Sink struct {
	client Client
	table  string
	prefix string
	now    func() time.Time
}

// Compile time check to ensure Sink satisfies the export.Sink interface.
var _ export.Sink = (*Sink)(nil)

// NewSink creates a sink writing to table. prefix is the partition key of
// every item, so several collections can share a table.
func NewSink(client Client, table, prefix string) *Sink {
	return &Sink{
		client: client,
		table:  table,
		prefix: prefix,
		now:    time.Now,
	}
}

// Put writes data as the item (prefix, name), replacing an existing one.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	if err := export.ValidateName(name); err != nil {
		return err
	}
	if len(data)+len(s.prefix)+len(name) > maxItemSize {
		return fmt.Errorf("%w: %s (%d bytes)", ErrItemTooLarge, name, len(data))
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			AttrPrefix:     &types.AttributeValueMemberS{Value: s.prefix},
			AttrName:       &types.AttributeValueMemberS{Value: name},
			AttrData:       &types.AttributeValueMemberB{Value: data},
			AttrExportedAt: &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put item %s: %w", name, err)
	}
	return nil
}
