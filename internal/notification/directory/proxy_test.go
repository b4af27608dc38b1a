package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/database"
	"notification-dispatcher/internal/common/errors"
	commonhttp "notification-dispatcher/internal/common/http"
	"notification-dispatcher/internal/common/logger"
)

func newTestProxy(t *testing.T, handler http.HandlerFunc) (*Proxy, *miniredis.Miniredis, *int) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	cfg := config.DirectoryConfig{
		BaseURL:  srv.URL + "/users",
		MediaURL: srv.URL + "/media",
		APIKey:   "test-key",
	}
	proxy := NewProxy(commonhttp.NewClient(0), rdb, cfg, logger.NewTestLogger(t))
	return proxy, mr, &calls
}

func TestGetUsers_FetchesAndCaches(t *testing.T) {
	proxy, mr, calls := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ApiKey test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"id":"u1","name":"Ada","email":"ada@example.com","phone":"+491701"}]`)
	})

	users, err := proxy.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada", users[0].Name)

	// second call is served from cache
	users, err = proxy.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, *calls)

	mr.CheckGet(t, "notification.users",
		`[{"id":"u1","name":"Ada","email":"ada@example.com","phone":"+491701"}]`)
	assert.InDelta(t, (300 * time.Second).Seconds(), mr.TTL("notification.users").Seconds(), 1)
}

func TestGetUsers_RefetchesAfterExpiry(t *testing.T) {
	proxy, mr, calls := newTestProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id":"u1","name":"Ada"}]`)
	})

	_, err := proxy.GetUsers(context.Background())
	require.NoError(t, err)

	mr.FastForward(301 * time.Second)

	_, err = proxy.GetUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestGetUsers_UpstreamError(t *testing.T) {
	proxy, _, _ := newTestProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := proxy.GetUsers(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDirectoryFetchFailed))
}

func TestGetMedia_CachesPerID(t *testing.T) {
	proxy, mr, calls := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media/m1", r.URL.Path)
		fmt.Fprint(w, `{"id":"m1","url":"https://cdn.example.com/m1.png"}`)
	})

	media, err := proxy.GetMedia(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/m1.png", media["url"])

	_, err = proxy.GetMedia(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)

	assert.InDelta(t, (600 * time.Second).Seconds(), mr.TTL("notification.media.m1").Seconds(), 1)
}
