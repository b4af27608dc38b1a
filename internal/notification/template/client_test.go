package template

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	commonhttp "notification-dispatcher/internal/common/http"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.MailjetConfig{
		APIKey:      "key",
		SecretKey:   "secret",
		TemplateURL: srv.URL,
	}
	return NewClient(commonhttp.NewClient(0), cfg, logger.NewTestLogger(t)), srv
}

func TestClient_FetchVariables(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/42/detailcontent", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		fmt.Fprint(w, `{"Count":1,"Data":[{"Html-part":"<p>{{var:firstname}}</p>","Text-part":"{% for item in var:items %}{{item.label}}{% endfor %}"}]}`)
	})

	vars, err := client.FetchVariables(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"firstname"}, vars.Scalars)
	assert.Equal(t, []string{"label"}, vars.Groups["items"])
}

func TestClient_FetchVariables_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FetchVariables(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateNotFound))
}

func TestClient_ListTemplates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		fmt.Fprint(w, `{"Count":2,"Data":[{"ID":1,"Name":"welcome","Locale":"en_US"},{"ID":2,"Name":"invoice","Locale":"de_DE"}]}`)
	})

	summaries, err := client.ListTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, int64(1), summaries[0].ID)
	assert.Equal(t, "invoice", summaries[1].Name)
}

type memoryStore struct {
	mu        sync.Mutex
	templates map[int64]models.MailjetTemplate
}

func (m *memoryStore) Upsert(_ context.Context, tpl models.MailjetTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.templates == nil {
		m.templates = make(map[int64]models.MailjetTemplate)
	}
	m.templates[tpl.TemplateID] = tpl
	return nil
}

func TestRefresher_SkipsBrokenTemplates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `{"Count":2,"Data":[{"ID":1,"Name":"welcome"},{"ID":2,"Name":"broken"}]}`)
		case "/1/detailcontent":
			fmt.Fprint(w, `{"Count":1,"Data":[{"Html-part":"{{var:firstname}}","Text-part":""}]}`)
		case "/2/detailcontent":
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	store := &memoryStore{}
	r := NewRefresher(client, store, 0, logger.NewTestLogger(t))

	require.NoError(t, r.Refresh(context.Background()))
	require.Len(t, store.templates, 1)
	assert.Equal(t, []string{"firstname"}, store.templates[1].Variables.Scalars)
}
