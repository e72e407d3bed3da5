/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBPersister.
type DynamoDBAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Attribute names of a settings item. "key" is the table's partition key.
const (
	dynamoAttrKey       = "key"
	dynamoAttrValue     = "value"
	dynamoAttrUpdatedAt = "updated_at"
)

type dynamoItem struct {
	Key       string `dynamodbav:"key"`
	Value     any    `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoDBPersister keeps every durable setting as a separate item of a DynamoDB table.
type DynamoDBPersister struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

var _ Persister = (*DynamoDBPersister)(nil)

// NewDynamoDBPersister creates a new DynamoDBPersister over an existing client.
func NewDynamoDBPersister(client DynamoDBAPI, table string) *DynamoDBPersister {
	return &DynamoDBPersister{client: client, table: table, now: time.Now}
}

// NewDynamoDBClient creates a DynamoDB client from the default AWS credential chain.
// Non-empty region and endpoint override the environment (endpoint is handy for DynamoDB Local).
func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Load scans the whole table.
func (p *DynamoDBPersister) Load(ctx context.Context) (map[string]any, error) {
	values := make(map[string]any)
	paginator := dynamodb.NewScanPaginator(p.client, &dynamodb.ScanInput{TableName: aws.String(p.table)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan settings table %s: %w", p.table, err)
		}
		for _, raw := range page.Items {
			var item dynamoItem
			if err = attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("unmarshal settings item: %w", err)
			}
			values[item.Key] = item.Value
		}
	}
	return values, nil
}

// Save puts one item per value.
func (p *DynamoDBPersister) Save(ctx context.Context, values map[string]any) error {
	updatedAt := p.now().UTC().Format(time.RFC3339)
	for key, value := range values {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal setting %q: %w", key, err)
		}
		_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(p.table),
			Item: map[string]types.AttributeValue{
				dynamoAttrKey:       &types.AttributeValueMemberS{Value: key},
				dynamoAttrValue:     av,
				dynamoAttrUpdatedAt: &types.AttributeValueMemberS{Value: updatedAt},
			},
		})
		if err != nil {
			return fmt.Errorf("put setting %q: %w", key, err)
		}
	}
	return nil
}
