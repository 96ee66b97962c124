// Package dynamo implements store.Store over the legacy DynamoDB "webpages" table.
// The table is keyed by url and has two secondary indexes, source-status-index (source, status)
// and category-status-index (bfCategory, status).
package dynamo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

//go:generate moq -out mocks/api.go -pkg mocks -skip-ensure -fmt goimports . API

// maxBatchWrite is the DynamoDB limit of items in one BatchWriteItem call
const maxBatchWrite = 25

var errUnprocessed = errors.New("unprocessed items left")

// API is the subset of the DynamoDB client used by the store
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Config contains DynamoDB connection parameters
type Config struct {
	Table           string // table name, "webpages" if empty
	Region          string // AWS region
	Endpoint        string // optional custom endpoint, like dynamodb-local
	AccessKeyID     string // optional static credentials, default chain if empty
	SecretAccessKey string
}

// Store is the DynamoDB implementation of store.Store
type Store struct {
	api        API
	table      string
	retries    int
	retryDelay time.Duration
}

// Option configures Store
type Option func(*Store)

// WithRetries sets attempts and initial delay of the backoff for unprocessed batch items
func WithRetries(attempts int, delay time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.retries = attempts
		}
		s.retryDelay = delay
	}
}

// New makes Store with a client built from the config and the default AWS credential chain
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Region == "" {
		return nil, errors.New("dynamodb region is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(client, cfg.Table, opts...), nil
}

// NewWithAPI makes Store for the given client
func NewWithAPI(api API, table string, opts ...Option) *Store {
	if table == "" {
		table = "webpages"
	}
	res := &Store{api: api, table: table, retries: 5, retryDelay: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Get retrieves a record by id. The table is keyed by url, so url is accepted as id too
// and resolved with GetItem, ids fall back to a filtered scan.
func (s *Store) Get(ctx context.Context, id string) (domain.Record, error) {
	if isURL(id) {
		out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.table),
			Key:       map[string]types.AttributeValue{"url": &types.AttributeValueMemberS{Value: id}},
		})
		if err != nil {
			return domain.Record{}, fmt.Errorf("get item %s: %w", id, err)
		}
		if len(out.Item) == 0 {
			return domain.Record{}, store.ErrNotFound
		}
		return decode(out.Item)
	}

	expr, err := expression.NewBuilder().WithFilter(expression.Name("id").Equal(expression.Value(id))).Build()
	if err != nil {
		return domain.Record{}, fmt.Errorf("build id filter: %w", err)
	}
	var start map[string]types.AttributeValue
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return domain.Record{}, fmt.Errorf("scan for id %s: %w", id, err)
		}
		if len(out.Items) > 0 {
			return decode(out.Items[0])
		}
		if len(out.LastEvaluatedKey) == 0 {
			return domain.Record{}, store.ErrNotFound
		}
		start = out.LastEvaluatedKey
	}
}

// Put writes the full record, url is the key so this is an upsert
func (s *Store) Put(ctx context.Context, r domain.Record) error {
	r, err := store.Prepare(r)
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	av, err := encode(r)
	if err != nil {
		return err
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: av}); err != nil {
		return fmt.Errorf("put item %s: %w", r.URL, err)
	}
	return nil
}

// Delete removes a record by id or url
func (s *Store) Delete(ctx context.Context, id string) error {
	url := id
	if !isURL(id) {
		r, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		url = r.URL
	}
	out, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table),
		Key:          map[string]types.AttributeValue{"url": &types.AttributeValueMemberS{Value: url}},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("delete item %s: %w", url, err)
	}
	if len(out.Attributes) == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Query reads a page from one of the secondary indexes
func (s *Store) Query(ctx context.Context, q store.Query, cursor string) (store.Page, error) {
	if err := q.Validate(); err != nil {
		return store.Page{}, fmt.Errorf("query: %w", err)
	}
	hashKey := "source"
	if q.Index == store.IndexCategoryStatus {
		hashKey = "bfCategory"
	}
	keyCond := expression.Key(hashKey).Equal(expression.Value(q.Key))
	if q.Status != "" {
		keyCond = keyCond.And(expression.Key("status").Equal(expression.Value(toLegacyStatus(q.Status))))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return store.Page{}, fmt.Errorf("build key condition: %w", err)
	}
	start, err := decodeCursor(cursor)
	if err != nil {
		return store.Page{}, err
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(q.Index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(min(q.PageSize(), 1000))), //nolint:gosec // bounded
		ExclusiveStartKey:         start,
	})
	if err != nil {
		return store.Page{}, fmt.Errorf("query %s: %w", q.Index, err)
	}
	return makePage(out.Items, out.LastEvaluatedKey)
}

// Scan reads a page of the table with filters. Page limit applies to items evaluated before
// filtering, so pages may be short and even empty while the cursor is still set.
func (s *Store) Scan(ctx context.Context, f store.Filter, cursor string) (store.Page, error) {
	start, err := decodeCursor(cursor)
	if err != nil {
		return store.Page{}, err
	}
	in := &dynamodb.ScanInput{
		TableName:         aws.String(s.table),
		Limit:             aws.Int32(int32(min(f.PageSize(), 1000))), //nolint:gosec // bounded
		ExclusiveStartKey: start,
	}

	if cond, ok := filterCondition(f); ok {
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return store.Page{}, fmt.Errorf("build filter: %w", err)
		}
		in.FilterExpression = expr.Filter()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	out, err := s.api.Scan(ctx, in)
	if err != nil {
		return store.Page{}, fmt.Errorf("scan: %w", err)
	}
	return makePage(out.Items, out.LastEvaluatedKey)
}

// BatchWrite puts records in chunks of 25, unprocessed items are retried with backoff.
// Items still unprocessed after retries are reported as failed.
func (s *Store) BatchWrite(ctx context.Context, records []domain.Record) (store.BatchResult, error) {
	res := store.BatchResult{}
	for start := 0; start < len(records); start += maxBatchWrite {
		chunk := records[start:min(start+maxBatchWrite, len(records))]

		var pending []types.WriteRequest
		idByURL := map[string]string{}
		for _, r := range chunk {
			prepared, err := store.Prepare(r)
			if err != nil {
				res.Failed = append(res.Failed, r.ID)
				continue
			}
			av, err := encode(prepared)
			if err != nil {
				res.Failed = append(res.Failed, prepared.ID)
				continue
			}
			idByURL[prepared.URL] = prepared.ID
			pending = append(pending, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}
		if len(pending) == 0 {
			continue
		}

		total := len(pending)
		retrier := repeater.NewBackoff(s.retries, s.retryDelay, repeater.WithMaxDelay(5*time.Second))
		err := retrier.Do(ctx, func() error {
			out, err := s.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{s.table: pending},
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems[s.table]
			if len(pending) > 0 {
				lgr.Printf("[DEBUG] %d unprocessed items, retrying", len(pending))
				return errUnprocessed
			}
			return nil
		})
		if err != nil && ctx.Err() != nil {
			return res, fmt.Errorf("batch write: %w", ctx.Err())
		}
		if err != nil {
			lgr.Printf("[WARN] batch write to %s left %d of %d items: %v", s.table, len(pending), total, err)
		}
		res.Written += total - len(pending)
		for _, wr := range pending {
			res.Failed = append(res.Failed, idByURL[putURL(wr)])
		}
	}
	return res, nil
}

func filterCondition(f store.Filter) (expression.ConditionBuilder, bool) {
	var conds []expression.ConditionBuilder
	if c, ok := inCondition("source", f.Sources); ok {
		conds = append(conds, c)
	}
	if c, ok := inCondition("bfCategory", f.Categories); ok {
		conds = append(conds, c)
	}
	statuses := make([]string, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, toLegacyStatus(st))
	}
	if c, ok := inCondition("status", statuses); ok {
		conds = append(conds, c)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, expression.Name("title").Contains(s))
	}
	if len(conds) == 0 {
		return expression.ConditionBuilder{}, false
	}
	res := conds[0]
	for _, c := range conds[1:] {
		res = res.And(c)
	}
	return res, true
}

func inCondition(name string, values []string) (expression.ConditionBuilder, bool) {
	if len(values) == 0 {
		return expression.ConditionBuilder{}, false
	}
	if len(values) == 1 {
		return expression.Name(name).Equal(expression.Value(values[0])), true
	}
	rest := make([]expression.OperandBuilder, 0, len(values)-1)
	for _, v := range values[1:] {
		rest = append(rest, expression.Value(v))
	}
	return expression.Name(name).In(expression.Value(values[0]), rest...), true
}

func makePage(items []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) (store.Page, error) {
	res := store.Page{Records: make([]domain.Record, 0, len(items))}
	for _, it := range items {
		r, err := decode(it)
		if err != nil {
			lgr.Printf("[WARN] skip undecodable item: %v", err)
			continue
		}
		res.Records = append(res.Records, r)
	}
	cursor, err := encodeCursor(lastKey)
	if err != nil {
		return store.Page{}, err
	}
	res.Cursor = cursor
	return res, nil
}

// encodeCursor makes an opaque cursor from LastEvaluatedKey, all key attributes are strings
func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var m map[string]string
	if err := attributevalue.UnmarshalMap(key, &m); err != nil {
		return "", fmt.Errorf("decode last evaluated key: %w", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	res, err := attributevalue.MarshalMap(m)
	if err != nil {
		return nil, fmt.Errorf("encode start key: %w", err)
	}
	return res, nil
}

func putURL(wr types.WriteRequest) string {
	if wr.PutRequest == nil {
		return ""
	}
	if v, ok := wr.PutRequest.Item["url"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}
