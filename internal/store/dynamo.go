package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/shared"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const defaultDynamoRegion = "us-east-1"

// DynamoStore implements Connector on top of DynamoDB. The account region is
// exposed as the only database and its tables as collections.
type DynamoStore struct {
	client *dynamodb.Client
	region string
}

// NewDynamo creates a DynamoDB connector from a URL of the form
// dynamodb://<region>?endpoint=<url>&access_key=<id>&secret_key=<secret>.
// Without explicit keys the default AWS credential chain is used.
func NewDynamo(ctx context.Context, u *url.URL) (*DynamoStore, error) {
	region := u.Host
	if region == "" {
		region = defaultDynamoRegion
	}
	q := u.Query()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if endpoint := q.Get("endpoint"); endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	if key, secret := q.Get("access_key"), q.Get("secret_key"); key != "" && secret != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{AccessKeyID: key, SecretAccessKey: secret},
		}))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", shared.ErrConnection, err)
	}

	return &DynamoStore{client: dynamodb.NewFromConfig(cfg), region: region}, nil
}

// ListDatabases returns the configured region as the single database.
func (s *DynamoStore) ListDatabases(_ context.Context) ([]string, error) {
	return []string{s.region}, nil
}

// ListCollections returns the table names of the region, sorted.
func (s *DynamoStore) ListCollections(ctx context.Context, database string) ([]string, error) {
	if database != s.region {
		return nil, fmt.Errorf("%w: database %q", shared.ErrNotFound, database)
	}

	var names []string
	p := dynamodb.NewListTablesPaginator(s.client, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list tables: %w", shared.ErrConnection, err)
		}
		names = append(names, page.TableNames...)
	}
	slices.Sort(names)
	return names, nil
}

// FetchDataset scans a whole table.
func (s *DynamoStore) FetchDataset(ctx context.Context, database, collection string) (*domain.Dataset, error) {
	if database != s.region {
		return nil, fmt.Errorf("%w: database %q", shared.ErrNotFound, database)
	}

	desc, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(collection)})
	if err != nil {
		return nil, dynamoError("describe table "+collection, err)
	}
	keys := keyAttributes(desc.Table.KeySchema)

	b := NewDatasetBuilder()
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{TableName: aws.String(collection)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, dynamoError("scan table "+collection, err)
		}
		for _, item := range page.Items {
			b.Add(dynamoItemID(item, keys), dynamoFields(item, keys))
		}
	}

	slog.Debug("Fetched dynamodb table", "region", s.region, "table", collection, "rows", b.Len())
	return b.Build(), nil
}

// Ping verifies the endpoint answers.
func (s *DynamoStore) Ping(ctx context.Context) error {
	if _, err := s.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return fmt.Errorf("%w: ping dynamodb: %w", shared.ErrConnection, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no long-lived connections of its own.
func (s *DynamoStore) Close(_ context.Context) error {
	return nil
}

func dynamoError(op string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrConnection, op, err)
}

// keyAttributes returns the key attribute names, hash key first.
func keyAttributes(schema []types.KeySchemaElement) []string {
	var hash, rng string
	for _, k := range schema {
		switch k.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(k.AttributeName)
		case types.KeyTypeRange:
			rng = aws.ToString(k.AttributeName)
		}
	}
	keys := []string{}
	if hash != "" {
		keys = append(keys, hash)
	}
	if rng != "" {
		keys = append(keys, rng)
	}
	return keys
}

// dynamoItemID renders the primary key as hash or hash#range.
func dynamoItemID(item map[string]types.AttributeValue, keys []string) string {
	id := ""
	for i, k := range keys {
		if i > 0 {
			id += "#"
		}
		switch v := dynamoValue(item[k]).(type) {
		case []byte:
			id += base64.StdEncoding.EncodeToString(v)
		default:
			id += fmt.Sprint(v)
		}
	}
	return id
}

// dynamoFields orders key attributes first, then the rest by name, since
// DynamoDB items carry no field order.
func dynamoFields(item map[string]types.AttributeValue, keys []string) []Field {
	rest := make([]string, 0, len(item))
	for name := range item {
		if !slices.Contains(keys, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)

	fields := make([]Field, 0, len(item))
	for _, name := range append(slices.Clone(keys), rest...) {
		av, ok := item[name]
		if !ok {
			continue
		}
		fields = append(fields, Field{Key: name, Value: dynamoValue(av)})
	}
	return fields
}

// dynamoValue converts an attribute value into a plain Go value.
func dynamoValue(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return parseDynamoNumber(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberB:
		return v.Value
	case *types.AttributeValueMemberSS:
		out := make([]any, len(v.Value))
		for i, s := range v.Value {
			out[i] = s
		}
		return out
	case *types.AttributeValueMemberNS:
		out := make([]any, len(v.Value))
		for i, n := range v.Value {
			out[i] = parseDynamoNumber(n)
		}
		return out
	case *types.AttributeValueMemberBS:
		out := make([]any, len(v.Value))
		for i, b := range v.Value {
			out[i] = base64.StdEncoding.EncodeToString(b)
		}
		return out
	case *types.AttributeValueMemberL:
		out := make([]any, len(v.Value))
		for i, e := range v.Value {
			out[i] = dynamoValue(e)
		}
		return out
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(v.Value))
		for k, e := range v.Value {
			out[k] = dynamoValue(e)
		}
		return out
	default:
		return nil
	}
}

func parseDynamoNumber(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
