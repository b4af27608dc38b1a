package template

import (
	"context"
	"time"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// VariablesStore is where scraped template requirements are persisted.
type VariablesStore interface {
	Upsert(ctx context.Context, tpl models.MailjetTemplate) error
}

// Refresher keeps the template store in sync with the Mailjet account.
// Verification only ever reads the store, so a template is unusable until
// the refresher has seen it.
type Refresher struct {
	client   *Client
	store    VariablesStore
	interval time.Duration
	logger   logger.Logger
}

func NewRefresher(client *Client, store VariablesStore, interval time.Duration, log logger.Logger) *Refresher {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Refresher{
		client:   client,
		store:    store,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "template.refresher"}),
	}
}

// Refresh scrapes every template once. A template that fails to download is
// skipped so the rest of the account still refreshes.
func (r *Refresher) Refresh(ctx context.Context) error {
	summaries, err := r.client.ListTemplates(ctx)
	if err != nil {
		return err
	}

	for _, s := range summaries {
		vars, err := r.client.FetchVariables(ctx, s.ID)
		if err != nil {
			r.logger.Warn("skipping template during refresh", map[string]interface{}{
				"template_id": s.ID,
				"error":       err,
			})
			continue
		}

		tpl := models.MailjetTemplate{
			TemplateID: s.ID,
			Name:       s.Name,
			Locale:     s.Locale,
			Variables:  vars,
		}
		if err := r.store.Upsert(ctx, tpl); err != nil {
			return err
		}
	}

	r.logger.Info("template store refreshed", map[string]interface{}{"templates": len(summaries)})
	return nil
}

// Run refreshes immediately and then on every interval tick until the
// context is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("initial template refresh failed", map[string]interface{}{"error": err})
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("template refresh failed", map[string]interface{}{"error": err})
			}
		}
	}
}
