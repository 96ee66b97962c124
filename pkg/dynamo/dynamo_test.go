package dynamo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/dynamo/mocks"
	"github.com/yitzyh/shtell/pkg/store"
)

func s(v string) *types.AttributeValueMemberS { return &types.AttributeValueMemberS{Value: v} }

func testItem(url, status string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"url":        s(url),
		"title":      s("title of " + url),
		"source":     s("reddit-movies"),
		"bfCategory": s("movies"),
		"status":     s(status),
		"upvotes":    &types.AttributeValueMemberN{Value: "42"},
	}
}

func TestEncodeDecode(t *testing.T) {
	r, err := domain.NewRecord("https://www.lichess.org/", "Lichess", "webgames")
	require.NoError(t, err)
	r.Status = domain.StatusDesktopOnly
	r.Tags = []string{"chess", "strategy"}
	r.Engagement.Upvotes = 10
	r.QualityScore = 55
	r.UpdatedAt = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	av, err := encode(r)
	require.NoError(t, err)
	assert.Equal(t, s("desktopOnly"), av["status"])
	assert.Equal(t, s("https://www.lichess.org/"), av["url"])
	assert.Equal(t, s("lichess.org"), av["domain"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: false}, av["isActive"])
	assert.Equal(t, s("2025-10-01T12:00:00Z"), av["updatedAt"])
	_, hasSummary := av["aiSummary"]
	assert.False(t, hasSummary, "empty optional attributes omitted")

	got, err := decode(av)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecode(t *testing.T) {
	t.Run("legacy item with isActive only", func(t *testing.T) {
		r, err := decode(map[string]types.AttributeValue{
			"url":      s("https://example.com/a"),
			"isActive": &types.AttributeValueMemberBOOL{Value: true},
			"tags":     &types.AttributeValueMemberSS{Value: []string{"one", "two"}},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, r.Status)
		assert.Equal(t, domain.RecordID("https://example.com/a"), r.ID)
		assert.Equal(t, "example.com", r.Domain)
		assert.Equal(t, []string{"one", "two"}, r.Tags)
	})

	t.Run("pending review", func(t *testing.T) {
		r, err := decode(testItem("https://example.com/b", "pendingReview"))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPendingReview, r.Status)
		assert.Equal(t, 42, r.Engagement.Upvotes)
		assert.Equal(t, "movies", r.Category)
	})

	t.Run("no url", func(t *testing.T) {
		_, err := decode(map[string]types.AttributeValue{"title": s("x")})
		require.ErrorIs(t, err, domain.ErrMissingURL)
	})
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("by url", func(t *testing.T) {
		api := &mocks.APIMock{
			GetItemFunc: func(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				assert.Equal(t, "webpages", *in.TableName)
				assert.Equal(t, s("https://example.com/a"), in.Key["url"])
				return &dynamodb.GetItemOutput{Item: testItem("https://example.com/a", "active")}, nil
			},
		}
		r, err := NewWithAPI(api, "").Get(ctx, "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", r.URL)
		assert.Len(t, api.GetItemCalls(), 1)
	})

	t.Run("by url not found", func(t *testing.T) {
		api := &mocks.APIMock{
			GetItemFunc: func(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{}, nil
			},
		}
		_, err := NewWithAPI(api, "").Get(ctx, "https://example.com/missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("by id scans pages", func(t *testing.T) {
		id := domain.RecordID("https://example.com/c")
		api := &mocks.APIMock{
			ScanFunc: func(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
				require.NotNil(t, in.FilterExpression)
				if in.ExclusiveStartKey == nil {
					return &dynamodb.ScanOutput{LastEvaluatedKey: map[string]types.AttributeValue{"url": s("https://example.com/b")}}, nil
				}
				return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{testItem("https://example.com/c", "active")}}, nil
			},
		}
		r, err := NewWithAPI(api, "").Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, r.ID)
		assert.Len(t, api.ScanCalls(), 2)
	})

	t.Run("by id not found", func(t *testing.T) {
		api := &mocks.APIMock{
			ScanFunc: func(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
				return &dynamodb.ScanOutput{}, nil
			},
		}
		_, err := NewWithAPI(api, "").Get(ctx, "0123")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestStore_Put(t *testing.T) {
	api := &mocks.APIMock{
		PutItemFunc: func(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	st := NewWithAPI(api, "pages")

	require.NoError(t, st.Put(context.Background(), domain.Record{URL: "https://example.com/a", Title: "A"}))
	require.Len(t, api.PutItemCalls(), 1)
	in := api.PutItemCalls()[0].In
	assert.Equal(t, "pages", *in.TableName)
	assert.Equal(t, s("active"), in.Item["status"], "status defaults to active")
	assert.Equal(t, s(domain.RecordID("https://example.com/a")), in.Item["id"])

	err := st.Put(context.Background(), domain.Record{Title: "no url"})
	require.ErrorIs(t, err, domain.ErrMissingURL)
	assert.Len(t, api.PutItemCalls(), 1)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	api := &mocks.APIMock{
		DeleteItemFunc: func(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			if in.Key["url"].(*types.AttributeValueMemberS).Value == "https://example.com/a" {
				return &dynamodb.DeleteItemOutput{Attributes: testItem("https://example.com/a", "active")}, nil
			}
			return &dynamodb.DeleteItemOutput{}, nil
		},
		ScanFunc: func(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{testItem("https://example.com/a", "active")}}, nil
		},
	}
	st := NewWithAPI(api, "")

	require.NoError(t, st.Delete(ctx, "https://example.com/a"))
	require.NoError(t, st.Delete(ctx, domain.RecordID("https://example.com/a")), "id resolved to url")
	assert.Len(t, api.ScanCalls(), 1)
	require.ErrorIs(t, st.Delete(ctx, "https://example.com/gone"), store.ErrNotFound)
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()
	lastKey := map[string]types.AttributeValue{
		"url":    s("https://example.com/a"),
		"source": s("reddit-movies"),
		"status": s("desktopOnly"),
	}
	api := &mocks.APIMock{
		QueryFunc: func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			if in.ExclusiveStartKey == nil {
				return &dynamodb.QueryOutput{
					Items:            []map[string]types.AttributeValue{testItem("https://example.com/a", "desktopOnly")},
					LastEvaluatedKey: lastKey,
				}, nil
			}
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{testItem("https://example.com/b", "desktopOnly")}}, nil
		},
	}
	st := NewWithAPI(api, "")

	q := store.BySource("reddit-movies", domain.StatusDesktopOnly)
	q.Limit = 1
	page, err := st.Query(ctx, q, "")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, domain.StatusDesktopOnly, page.Records[0].Status)
	require.NotEmpty(t, page.Cursor)

	in := api.QueryCalls()[0].In
	assert.Equal(t, store.IndexSourceStatus, *in.IndexName)
	assert.Equal(t, int32(1), *in.Limit)
	assert.ElementsMatch(t, []string{"source", "status"}, mapValues(in.ExpressionAttributeNames))
	assert.Contains(t, avValues(in.ExpressionAttributeValues), s("desktopOnly"))
	assert.Contains(t, avValues(in.ExpressionAttributeValues), s("reddit-movies"))

	page, err = st.Query(ctx, q, page.Cursor)
	require.NoError(t, err)
	assert.Empty(t, page.Cursor)
	assert.Equal(t, lastKey, api.QueryCalls()[1].In.ExclusiveStartKey, "cursor restores the start key")

	t.Run("category index", func(t *testing.T) {
		_, err := st.Query(ctx, store.ByCategory("movies", ""), "")
		require.NoError(t, err)
		in := api.QueryCalls()[2].In
		assert.Equal(t, store.IndexCategoryStatus, *in.IndexName)
		assert.Equal(t, []string{"bfCategory"}, mapValues(in.ExpressionAttributeNames))
	})

	t.Run("bad cursor", func(t *testing.T) {
		_, err := st.Query(ctx, q, "!!not-base64")
		require.Error(t, err)
	})

	t.Run("api error", func(t *testing.T) {
		failing := &mocks.APIMock{
			QueryFunc: func(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				return nil, errors.New("throttled")
			},
		}
		_, err := NewWithAPI(failing, "").Query(ctx, q, "")
		require.ErrorContains(t, err, "throttled")
	})
}

func TestStore_Scan(t *testing.T) {
	ctx := context.Background()
	api := &mocks.APIMock{
		ScanFunc: func(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{
				testItem("https://example.com/a", "active"),
				{"title": s("broken item without url")},
			}}, nil
		},
	}
	st := NewWithAPI(api, "")

	page, err := st.Scan(ctx, store.Filter{}, "")
	require.NoError(t, err)
	assert.Len(t, page.Records, 1, "undecodable items skipped")
	assert.Nil(t, api.ScanCalls()[0].In.FilterExpression)
	assert.Equal(t, int32(store.DefaultPageSize), *api.ScanCalls()[0].In.Limit)

	_, err = st.Scan(ctx, store.Filter{
		Sources:  []string{"reddit-movies", "reddit-gadgets"},
		Statuses: []domain.Status{domain.StatusDesktopOnly},
		Search:   " Chess ",
	}, "")
	require.NoError(t, err)
	in := api.ScanCalls()[1].In
	require.NotNil(t, in.FilterExpression)
	assert.ElementsMatch(t, []string{"source", "status", "title"}, mapValues(in.ExpressionAttributeNames))
	assert.Len(t, in.ExpressionAttributeValues, 4)
	assert.Contains(t, *in.FilterExpression, "IN")
	assert.Contains(t, *in.FilterExpression, "contains")
}

func TestStore_BatchWrite(t *testing.T) {
	ctx := context.Background()
	records := make([]domain.Record, 0, 30)
	for i := range 30 {
		records = append(records, domain.Record{URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	records = append(records, domain.Record{Title: "no url"})

	t.Run("unprocessed retried", func(t *testing.T) {
		calls := 0
		api := &mocks.APIMock{
			BatchWriteItemFunc: func(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
				calls++
				reqs := in.RequestItems["webpages"]
				if calls == 1 {
					assert.Len(t, reqs, 25)
					return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{"webpages": reqs[:3]}}, nil
				}
				return &dynamodb.BatchWriteItemOutput{}, nil
			},
		}
		res, err := NewWithAPI(api, "", WithRetries(3, time.Millisecond)).BatchWrite(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, 30, res.Written)
		assert.Equal(t, []string{""}, res.Failed, "record without url fails")
		require.Len(t, api.BatchWriteItemCalls(), 3)
		assert.Len(t, api.BatchWriteItemCalls()[1].In.RequestItems["webpages"], 3)
		assert.Len(t, api.BatchWriteItemCalls()[2].In.RequestItems["webpages"], 5)
	})

	t.Run("unprocessed left after retries", func(t *testing.T) {
		api := &mocks.APIMock{
			BatchWriteItemFunc: func(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
				reqs := in.RequestItems["webpages"]
				return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{"webpages": reqs[len(reqs)-1:]}}, nil
			},
		}
		res, err := NewWithAPI(api, "", WithRetries(2, time.Millisecond)).BatchWrite(ctx, records[:5])
		require.NoError(t, err)
		assert.Equal(t, 4, res.Written)
		assert.Equal(t, []string{domain.RecordID("https://example.com/4")}, res.Failed)
		assert.Len(t, api.BatchWriteItemCalls(), 2)
	})

	t.Run("api error fails chunk", func(t *testing.T) {
		api := &mocks.APIMock{
			BatchWriteItemFunc: func(context.Context, *dynamodb.BatchWriteItemInput, ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
				return nil, errors.New("boom")
			},
		}
		res, err := NewWithAPI(api, "", WithRetries(2, time.Millisecond)).BatchWrite(ctx, records[:3])
		require.NoError(t, err)
		assert.Equal(t, 0, res.Written)
		assert.Len(t, res.Failed, 3)
	})
}

func TestCursor(t *testing.T) {
	c, err := encodeCursor(nil)
	require.NoError(t, err)
	assert.Empty(t, c)

	key := map[string]types.AttributeValue{"url": s("https://example.com/a"), "bfCategory": s("games")}
	c, err = encodeCursor(key)
	require.NoError(t, err)
	got, err := decodeCursor(c)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = decodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func mapValues(m map[string]string) []string {
	res := make([]string, 0, len(m))
	for _, v := range m {
		res = append(res, v)
	}
	return res
}

func avValues(m map[string]types.AttributeValue) []types.AttributeValue {
	res := make([]types.AttributeValue, 0, len(m))
	for _, v := range m {
		res = append(res, v)
	}
	return res
}
