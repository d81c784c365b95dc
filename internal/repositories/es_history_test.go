package repositories

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	commonconfig "github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *core.ZapLogger {
	t.Helper()
	logger, err := core.NewZapLogger(commonconfig.ZapConfig{})
	require.NoError(t, err)
	return logger
}

// recordedRequest 保留仓库发出的一次 Elasticsearch 请求，供断言用。
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// fakeES 是基于 httptest 的 Elasticsearch 替身：记录每个请求，
// 并按路径后缀返回预设响应体。
type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(r *http.Request) (int, string)
}

func (f *fakeES) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if len(bodyBytes) > 0 {
			json.Unmarshal(bodyBytes, &body)
		}

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		f.mu.Unlock()

		status, payload := http.StatusOK, `{}`
		if f.respond != nil {
			status, payload = f.respond(r)
		}
		// 客户端校验该响应头以确认对端是 Elasticsearch。
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(payload))
	})
}

func (f *fakeES) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newHistoryRepoWithFakeES(t *testing.T, fake *fakeES) HistoryRepository {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewESHistoryRepository(client, "search_history", 5*time.Minute, testLogger(t))
}

// searchHitsResponse 构造 _search 响应体，携带给定的历史文档命中。
func searchHitsResponse(t *testing.T, docs ...models.SearchHistoryDocument) string {
	t.Helper()
	hits := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, map[string]interface{}{"_source": doc})
	}
	payload, err := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	})
	require.NoError(t, err)
	return string(payload)
}

func TestRecordCoalescesIntoRecentRecord(t *testing.T) {
	existing := models.SearchHistoryDocument{
		ID:          "h1",
		UserID:      "u1",
		Query:       "bike",
		Timestamp:   time.Now().UTC().Add(-time.Minute),
		SearchCount: 1,
	}
	fake := &fakeES{
		respond: func(r *http.Request) (int, string) {
			if strings.HasSuffix(r.URL.Path, "/_search") {
				return http.StatusOK, searchHitsResponse(t, existing)
			}
			return http.StatusOK, `{"result":"updated"}`
		},
	}
	repo := newHistoryRepoWithFakeES(t, fake)

	err := repo.Record(context.Background(), models.Identity{UserID: "u1"}, "Bike", "", "", 7)
	require.NoError(t, err)

	requests := fake.recorded()
	require.Len(t, requests, 2)

	// 第一步：在合并窗口内按身份 + 规范化查询词查找既有记录。
	lookup := requests[0]
	assert.Equal(t, "/search_history/_search", lookup.Path)
	lookupJSON, _ := json.Marshal(lookup.Body)
	assert.Contains(t, string(lookupJSON), `"query.keyword":"bike"`)
	assert.Contains(t, string(lookupJSON), `"user_id":"u1"`)
	assert.Contains(t, string(lookupJSON), `"gte"`)

	// 第二步：命中时对既有文档发脚本更新，而不是插入新文档。
	update := requests[1]
	assert.Equal(t, http.MethodPost, update.Method)
	assert.Equal(t, "/search_history/_update/h1", update.Path)
	assert.Contains(t, update.Query, "refresh=true")

	script, ok := update.Body["script"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, script["source"], "ctx._source.search_count += 1")
	params, ok := script["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), params["result_count"])
}

func TestRecordInsertsFreshRecordWhenNoRecentMatch(t *testing.T) {
	fake := &fakeES{
		respond: func(r *http.Request) (int, string) {
			if strings.HasSuffix(r.URL.Path, "/_search") {
				return http.StatusOK, searchHitsResponse(t)
			}
			return http.StatusCreated, `{"result":"created"}`
		},
	}
	repo := newHistoryRepoWithFakeES(t, fake)

	err := repo.Record(context.Background(), models.Identity{SessionID: "s1"}, "  Mountain Bike ", "cat-bikes", "loc-sh", 12)
	require.NoError(t, err)

	requests := fake.recorded()
	require.Len(t, requests, 2)

	insert := requests[1]
	assert.Equal(t, http.MethodPut, insert.Method)
	assert.True(t, strings.HasPrefix(insert.Path, "/search_history/_doc/"), "期望写入 _doc，实际路径: %s", insert.Path)
	assert.Contains(t, insert.Query, "refresh=true")

	// 新记录从 search_count 1 开始，查询词已规范化（小写、去首尾空白）。
	assert.Equal(t, float64(1), insert.Body["search_count"])
	assert.Equal(t, "mountain bike", insert.Body["query"])
	assert.Equal(t, "s1", insert.Body["session_id"])
	assert.Equal(t, "cat-bikes", insert.Body["category_id"])
	assert.Equal(t, float64(12), insert.Body["result_count"])
}

func TestUpdateEngagementMergesIntoRecentRecord(t *testing.T) {
	existing := models.SearchHistoryDocument{
		ID:          "h2",
		UserID:      "u1",
		Query:       "bike",
		Timestamp:   time.Now().UTC().Add(-2 * time.Minute),
		SearchCount: 2,
	}
	fake := &fakeES{
		respond: func(r *http.Request) (int, string) {
			if strings.HasSuffix(r.URL.Path, "/_search") {
				return http.StatusOK, searchHitsResponse(t, existing)
			}
			return http.StatusOK, `{"result":"updated"}`
		},
	}
	repo := newHistoryRepoWithFakeES(t, fake)

	dwell := int64(30)
	converted := true
	err := repo.UpdateEngagement(context.Background(), models.Identity{UserID: "u1"}, EngagementUpdate{
		Query:          "bike",
		ClickedResults: []string{"l1"},
		DwellTime:      &dwell,
		Converted:      &converted,
	})
	require.NoError(t, err)

	requests := fake.recorded()
	require.Len(t, requests, 2)

	update := requests[1]
	assert.Equal(t, "/search_history/_update/h2", update.Path)

	script, ok := update.Body["script"].(map[string]interface{})
	require.True(t, ok)
	source, _ := script["source"].(string)
	// 合并规则：点击取并集，停留取最大值，转化为 OR。
	assert.Contains(t, source, "clicked_results.contains(item)")
	assert.Contains(t, source, "params.dwell > current")
	assert.Contains(t, source, "ctx._source.converted = true")

	params, ok := script["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"l1"}, params["clicked"])
	assert.Equal(t, float64(30), params["dwell"])
	assert.Equal(t, true, params["converted"])
}

func TestUpdateEngagementInsertsCarrierRecordWhenNoRecentMatch(t *testing.T) {
	fake := &fakeES{
		respond: func(r *http.Request) (int, string) {
			if strings.HasSuffix(r.URL.Path, "/_search") {
				return http.StatusOK, searchHitsResponse(t)
			}
			return http.StatusCreated, `{"result":"created"}`
		},
	}
	repo := newHistoryRepoWithFakeES(t, fake)

	converted := true
	err := repo.UpdateEngagement(context.Background(), models.Identity{UserID: "u1"}, EngagementUpdate{
		Query:          "bike",
		ClickedResults: []string{"l1", "l2"},
		Converted:      &converted,
	})
	require.NoError(t, err)

	requests := fake.recorded()
	require.Len(t, requests, 2)

	// 窗口外的互动信号不丢弃：落成一条新记录。
	insert := requests[1]
	assert.True(t, strings.HasPrefix(insert.Path, "/search_history/_doc/"))
	assert.Equal(t, float64(1), insert.Body["search_count"])
	assert.Equal(t, []interface{}{"l1", "l2"}, insert.Body["clicked_results"])
	assert.Equal(t, true, insert.Body["converted"])
}

func TestMergeSessionSecondPassMatchesNothing(t *testing.T) {
	merged := false
	fake := &fakeES{}
	fake.respond = func(r *http.Request) (int, string) {
		if merged {
			return http.StatusOK, `{"updated":0}`
		}
		merged = true
		return http.StatusOK, `{"updated":3}`
	}
	repo := newHistoryRepoWithFakeES(t, fake)

	first, err := repo.MergeSession(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), first)

	// 迁移请求带 refresh，改写立即可见；重复调用时会话名下已无记录。
	second, err := repo.MergeSession(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), second)

	requests := fake.recorded()
	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, "/search_history/_update_by_query", req.Path)
		assert.Contains(t, req.Query, "refresh=true")

		query, ok := req.Body["query"].(map[string]interface{})
		require.True(t, ok)
		term, ok := query["term"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "s1", term["session_id"])

		script, ok := req.Body["script"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, script["source"], "ctx._source.user_id = params.user_id")
		assert.Contains(t, script["source"], "ctx._source.session_id = null")
	}
}
