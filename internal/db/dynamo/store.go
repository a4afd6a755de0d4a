package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

var (
	_ db.KVStore = (*Store)(nil)
	_ db.Pinger  = (*Store)(nil)
)

// Default attribute names of the records table.
const (
	DefaultKeyAttribute  = "package_id"
	DefaultDataAttribute = "data"
)

// Client is the subset of the DynamoDB API the store needs.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds the records table location.
type Config struct {
	Table         string
	Region        string
	Endpoint      string
	KeyAttribute  string
	DataAttribute string
}

// Store reads compressed package records from a DynamoDB table keyed by package id.
type Store struct {
	client  Client
	table   string
	keyAttr string
	dataAtt string
}

// Open builds a DynamoDB client from the default AWS credential chain.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("load aws config: %w", err)}
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg), nil
}

// New wraps an existing client.
func New(client Client, cfg Config) *Store {
	if cfg.KeyAttribute == "" {
		cfg.KeyAttribute = DefaultKeyAttribute
	}
	if cfg.DataAttribute == "" {
		cfg.DataAttribute = DefaultDataAttribute
	}
	return &Store{client: client, table: cfg.Table, keyAttr: cfg.KeyAttribute, dataAtt: cfg.DataAttribute}
}

// Get returns the data attribute of the item keyed by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			s.keyAttr: &types.AttributeValueMemberS{Value: key},
		},
		ProjectionExpression:     aws.String("#d"),
		ExpressionAttributeNames: map[string]string{"#d": s.dataAtt},
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return nil, &db.Error{Op: db.OpGetItem, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpGetItem, Err: err}
	}
	if len(out.Item) == 0 {
		return nil, db.ErrKeyNotFound
	}

	switch v := out.Item[s.dataAtt].(type) {
	case *types.AttributeValueMemberB:
		return v.Value, nil
	case *types.AttributeValueMemberS:
		return []byte(v.Value), nil
	default:
		return nil, db.ErrKeyNotFound
	}
}

// Ping describes the table.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}
