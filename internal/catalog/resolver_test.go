package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	commonconfig "github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/config"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *core.ZapLogger {
	t.Helper()
	logger, err := core.NewZapLogger(commonconfig.ZapConfig{})
	require.NoError(t, err)
	return logger
}

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPClient(config.CatalogConfig{BaseURL: server.URL}, testLogger(t))
}

func TestExpandCategoryReturnsDescendants(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"categoryIds": []string{"cat-bikes", "cat-ebikes", "cat-kids-bikes"},
		})
	}))

	ids, err := client.ExpandCategory(context.Background(), "cat-bikes")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-bikes", "cat-ebikes", "cat-kids-bikes"}, ids)
	assert.Equal(t, "/internal/categories/cat-bikes/descendants", gotPath)
}

func TestExpandCategoryNotFoundMeansEmptyExpansion(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	ids, err := client.ExpandCategory(context.Background(), "cat-unknown")
	require.NoError(t, err)
	require.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestExpandCategoryServerErrorIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.ExpandCategory(context.Background(), "cat-bikes")
	assert.Error(t, err)
}

func TestFetchAllListingsPaginates(t *testing.T) {
	// 第一页满 500 条，第二页 2 条：客户端应请求两页并拼接。
	var offsets []int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)
		offsets = append(offsets, offset)

		var listings []models.ListingPayload
		count := 500
		if offset > 0 {
			count = 2
		}
		for i := 0; i < count; i++ {
			listings = append(listings, models.ListingPayload{
				ID:    fmt.Sprintf("l-%d", offset+i),
				Title: "listing",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"listings": listings,
			"total":    502,
		})
	}))

	all, err := client.FetchAllListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 502)
	assert.Equal(t, []int{0, 500}, offsets)
	assert.Equal(t, "l-0", all[0].ID)
	assert.Equal(t, "l-501", all[501].ID)
}

func TestFetchAllListingsServerErrorIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.FetchAllListings(context.Background())
	assert.Error(t, err)
}
