/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	ctx := context.Background()

	p := NewFilePersister(path)
	values, err := p.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, values)

	require.NoError(t, p.Save(ctx, map[string]any{"theme": "dark", "volume": 7}))
	require.NoError(t, p.Save(ctx, map[string]any{"theme": "light"}))

	values, err = NewFilePersister(path).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"theme": "light", "volume": float64(7)}, values)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFilePersister_KeepsJSONTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	ctx := context.Background()

	saved := map[string]any{
		"volume":  float64(7),
		"ratio":   0.25,
		"sidebar": map[string]any{"open": true, "width": float64(320)},
		"recent":  []any{"ada", float64(2)},
	}
	require.NoError(t, NewFilePersister(path).Save(ctx, saved))

	fileData, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(fileData), "volume: 7")

	values, err := NewFilePersister(path).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, saved, values)

	// A value stored as float64 keeps its type across a restart.
	svc := NewService(nil)
	store := NewStore(nil, StoreOpts{Persister: NewFilePersister(path)})
	require.NoError(t, store.Load(ctx))
	store.Bind(svc)
	volume, ok := GetAs[float64](svc, "volume")
	require.True(t, ok)
	require.Equal(t, float64(7), volume)
}

func TestFilePersister_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("theme: [dark"), 0o600))

	_, err := NewFilePersister(path).Load(context.Background())
	require.ErrorContains(t, err, "parse settings file")
}

type fakeDynamoDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	table string
}

func (f *fakeDynamoDB) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = aws.ToString(in.TableName)
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (f *fakeDynamoDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = aws.ToString(in.TableName)
	key := in.Item[dynamoAttrKey].(*types.AttributeValueMemberS).Value
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestDynamoDBPersister(t *testing.T) {
	ctx := context.Background()
	client := &fakeDynamoDB{items: map[string]map[string]types.AttributeValue{}}
	p := NewDynamoDBPersister(client, "charai-settings")
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, p.Save(ctx, map[string]any{"theme": "dark", "volume": 7, "sidebar": map[string]any{"open": true}}))
	require.Equal(t, "charai-settings", client.table)
	require.Equal(t, &types.AttributeValueMemberS{Value: "2025-01-02T03:04:05Z"}, client.items["theme"][dynamoAttrUpdatedAt])

	values, err := p.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"theme":   "dark",
		"volume":  float64(7),
		"sidebar": map[string]any{"open": true},
	}, values)
}
