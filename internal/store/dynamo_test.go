package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/ashureev/datachat/internal/shared"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamoValue(t *testing.T) {
	tests := []struct {
		name string
		in   types.AttributeValue
		want any
	}{
		{"string", &types.AttributeValueMemberS{Value: "pen"}, "pen"},
		{"integer", &types.AttributeValueMemberN{Value: "42"}, int64(42)},
		{"float", &types.AttributeValueMemberN{Value: "32.5"}, 32.5},
		{"bool", &types.AttributeValueMemberBOOL{Value: true}, true},
		{"null", &types.AttributeValueMemberNULL{Value: true}, nil},
		{"string set", &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, []any{"a", "b"}},
		{"number set", &types.AttributeValueMemberNS{Value: []string{"1", "2.5"}}, []any{int64(1), 2.5}},
		{
			"map",
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"city": &types.AttributeValueMemberS{Value: "Oslo"},
			}},
			map[string]any{"city": "Oslo"},
		},
		{
			"list",
			&types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberN{Value: "1"},
				&types.AttributeValueMemberS{Value: "x"},
			}},
			[]any{int64(1), "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dynamoValue(tt.in))
		})
	}
}

func TestKeyAttributesHashFirst(t *testing.T) {
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String("created"), KeyType: types.KeyTypeRange},
		{AttributeName: aws.String("customer"), KeyType: types.KeyTypeHash},
	}
	assert.Equal(t, []string{"customer", "created"}, keyAttributes(schema))
}

func TestDynamoItemToRow(t *testing.T) {
	item := map[string]types.AttributeValue{
		"note":     &types.AttributeValueMemberS{Value: "gift"},
		"amount":   &types.AttributeValueMemberN{Value: "10"},
		"created":  &types.AttributeValueMemberN{Value: "1700000000"},
		"customer": &types.AttributeValueMemberS{Value: "c1"},
	}
	keys := []string{"customer", "created"}

	assert.Equal(t, "c1#1700000000", dynamoItemID(item, keys))

	fields := dynamoFields(item, keys)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Key
	}
	assert.Equal(t, []string{"customer", "created", "amount", "note"}, names)
}

func TestDynamoErrorClassification(t *testing.T) {
	missing := fmt.Errorf("operation error: %w", &types.ResourceNotFoundException{Message: aws.String("no table")})
	assert.True(t, errors.Is(dynamoError("describe table t", missing), shared.ErrNotFound))
	assert.True(t, errors.Is(dynamoError("scan table t", errors.New("dial tcp: refused")), shared.ErrConnection))
}

func TestDynamoUnknownDatabase(t *testing.T) {
	u, err := url.Parse("dynamodb://eu-west-1?endpoint=http://localhost:8000&access_key=x&secret_key=y")
	require.NoError(t, err)

	s, err := NewDynamo(context.Background(), u)
	require.NoError(t, err)

	dbs, err := s.ListDatabases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1"}, dbs)

	_, err = s.ListCollections(context.Background(), "us-east-2")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = s.FetchDataset(context.Background(), "us-east-2", "orders")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
