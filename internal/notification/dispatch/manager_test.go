package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	commonhttp "notification-dispatcher/internal/common/http"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/channel"
	"notification-dispatcher/internal/notification/factory"
	"notification-dispatcher/internal/notification/scope"
)

type fakeStore struct {
	saved     []*models.Notification
	byID      map[string]*models.Notification
	completed []string
}

func (f *fakeStore) Save(_ context.Context, n *models.Notification) error {
	f.saved = append(f.saved, n)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*models.Notification, error) {
	if n, ok := f.byID[id]; ok {
		return n, nil
	}
	return nil, errors.NewEntityNotFoundError("notification", id)
}

func (f *fakeStore) MarkCompleted(_ context.Context, id string, _ time.Time) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, _ string) ([]*models.Notification, error) {
	return nil, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string) error { return nil }

type fakePublisher struct {
	cmds []models.DispatchCommand
	err  error
}

func (f *fakePublisher) PublishDispatch(_ context.Context, cmd models.DispatchCommand) error {
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

type fakeTemplates struct {
	vars models.TemplateVariables
	err  error
}

func (f *fakeTemplates) GetRequiredVariables(_ context.Context, _ int64) (models.TemplateVariables, error) {
	return f.vars, f.err
}

type managerFixture struct {
	manager    *Manager
	store      *fakeStore
	publisher  *fakePublisher
	templates  *fakeTemplates
	mailjet    *[]int // message counts per provider call
	completion *fakeCompletionStore
}

func newManagerFixture(t *testing.T) *managerFixture {
	counts := &[]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []json.RawMessage `json:"Messages"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		*counts = append(*counts, len(req.Messages))
	}))
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger(t)
	email := channel.NewEmailSender(commonhttp.NewClient(0),
		config.MailjetConfig{SendURL: srv.URL}, t.TempDir(), log)

	store := &fakeStore{byID: make(map[string]*models.Notification)}
	publisher := &fakePublisher{}
	templates := &fakeTemplates{}
	completion := &fakeCompletionStore{}

	resolvers := map[models.Scope]scope.Resolver{
		models.ScopeIndividual: &fakeResolver{users: makeUsers(1)},
		models.ScopeGlobal:     &fakeResolver{},
	}
	orchestrator := NewOrchestrator([]channel.Sender{email}, email, resolvers,
		completion, commonhttp.NewClient(0), 50, log)

	factories := factory.NewResolver(
		factory.NewEmailFactory(), factory.NewSmsFactory(), factory.NewPushFactory())

	return &managerFixture{
		manager:    NewManager(factories, templates, store, publisher, email, orchestrator, log),
		store:      store,
		publisher:  publisher,
		templates:  templates,
		mailjet:    counts,
		completion: completion,
	}
}

func smsInput() *factory.Input {
	return &factory.Input{
		Channel:       "SMS",
		Scope:         "INDIVIDUAL",
		ScopeTarget:   []string{"u1"},
		SmsSenderName: "Notify",
		SmsContent:    "hello",
	}
}

func templateEmailInput() *factory.Input {
	return &factory.Input{
		Channel:          "EMAIL",
		Scope:            "INDIVIDUAL",
		ScopeTarget:      []string{"u1"},
		EmailSenderName:  "Ops",
		EmailSenderEmail: "ops@example.com",
		EmailSubject:     "Hi",
		TemplateID:       42,
		Recipients: []models.Recipient{
			{
				Email:     []models.Address{{Address: "a@example.com"}},
				Variables: map[string]interface{}{"firstname": "A"},
			},
		},
	}
}

func TestCreateNotification_PersistsAndPublishes(t *testing.T) {
	f := newManagerFixture(t)

	n, err := f.manager.CreateNotification(context.Background(), smsInput(), nil)
	require.NoError(t, err)

	require.Len(t, f.store.saved, 1)
	require.Len(t, f.publisher.cmds, 1)
	assert.Equal(t, n.ID, f.publisher.cmds[0].NotificationID)
	assert.Equal(t, "SMS", f.publisher.cmds[0].Channel)
	assert.Equal(t, models.StatusPending, n.Status)
}

func TestCreateNotification_SchemaFailureBeforeSave(t *testing.T) {
	f := newManagerFixture(t)

	in := smsInput()
	in.SmsContent = ""
	_, err := f.manager.CreateNotification(context.Background(), in, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	assert.Empty(t, f.store.saved)
	assert.Empty(t, f.publisher.cmds)
}

func TestCreateNotification_MissingTemplateVariables(t *testing.T) {
	f := newManagerFixture(t)
	f.templates.vars = models.TemplateVariables{Scalars: []string{"firstname", "lastname"}}

	_, err := f.manager.CreateNotification(context.Background(), templateEmailInput(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingVariables))
	assert.Empty(t, f.store.saved)
}

func TestCreateNotification_UnknownTemplate(t *testing.T) {
	f := newManagerFixture(t)
	f.templates.err = errors.NewTemplateNotFoundError(42)

	_, err := f.manager.CreateNotification(context.Background(), templateEmailInput(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateNotFound))
}

func TestCreateNotification_RawEmailNeedsBothParts(t *testing.T) {
	f := newManagerFixture(t)

	in := templateEmailInput()
	in.TemplateID = 0
	in.EmailContentPlain = "only plain"

	_, err := f.manager.CreateNotification(context.Background(), in, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestCreateNotification_PublishFailure(t *testing.T) {
	f := newManagerFixture(t)
	f.publisher.err = errors.NewDispatchPublishFailedError(assert.AnError)

	_, err := f.manager.CreateNotification(context.Background(), smsInput(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDispatchPublishFailed))
	// the notification was persisted before the publish attempt
	assert.Len(t, f.store.saved, 1)
}

func TestDispatch_UnknownNotification(t *testing.T) {
	f := newManagerFixture(t)

	err := f.manager.Dispatch(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEntityNotFound))
}

func TestDispatch_ScheduledInFutureIsRetryable(t *testing.T) {
	f := newManagerFixture(t)

	sendAfter := time.Now().Add(time.Hour)
	f.store.byID["n1"] = &models.Notification{
		ID:        "n1",
		Channel:   models.ChannelEmail,
		Scope:     models.ScopeGlobal,
		SendAfter: &sendAfter,
		Email:     &models.EmailFields{},
	}

	err := f.manager.Dispatch(context.Background(), "n1")
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestDispatch_DeliversLoadedNotification(t *testing.T) {
	f := newManagerFixture(t)

	f.store.byID["n1"] = &models.Notification{
		ID:      "n1",
		Channel: models.ChannelEmail,
		Scope:   models.ScopeGlobal,
		Email: &models.EmailFields{
			SenderName:  "Ops",
			SenderEmail: "ops@example.com",
			Subject:     "Hi",
			Recipients: []models.Recipient{
				{Email: []models.Address{{Address: "a@example.com"}}},
			},
			ContentPlain: "p",
			ContentHTML:  "h",
		},
	}

	require.NoError(t, f.manager.Dispatch(context.Background(), "n1"))
	assert.Equal(t, []int{1}, *f.mailjet)
	assert.Len(t, f.completion.completed, 1)
}

func TestSendBatchEmail_ExcludesFailingRecipientWithoutBlockingSiblings(t *testing.T) {
	f := newManagerFixture(t)
	f.templates.vars = models.TemplateVariables{Scalars: []string{"firstname"}}

	in := templateEmailInput()
	in.Recipients = []models.Recipient{
		{
			Email:     []models.Address{{Address: "ok@example.com"}},
			Variables: map[string]interface{}{"firstname": "A"},
		},
		{
			Email:     []models.Address{{Address: "bad@example.com"}},
			Variables: map[string]interface{}{},
		},
	}

	failures, err := f.manager.SendBatchEmail(context.Background(), in, nil)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "bad@example.com", failures[0].Recipient.Email[0].Address)
	assert.True(t, errors.HasCode(failures[0].Err, errors.ErrCodeMissingVariables))

	// the sibling still went out in a single provider call
	assert.Equal(t, []int{1}, *f.mailjet)
	assert.Len(t, f.store.completed, 1)
}

func TestSendBatchEmail_AllRecipientsExcluded(t *testing.T) {
	f := newManagerFixture(t)
	f.templates.vars = models.TemplateVariables{Scalars: []string{"firstname"}}

	in := templateEmailInput()
	in.Recipients = []models.Recipient{
		{Email: []models.Address{{Address: "bad@example.com"}}, Variables: map[string]interface{}{}},
	}

	failures, err := f.manager.SendBatchEmail(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Len(t, failures, 1)
	assert.Empty(t, *f.mailjet)
	assert.Empty(t, f.store.saved)
}
