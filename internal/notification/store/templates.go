package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// TemplateStore persists the scraped variable requirements per Mailjet
// template. Verification reads only from here, never from the provider.
type TemplateStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewTemplateStore(db *sql.DB, log logger.Logger) *TemplateStore {
	return &TemplateStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "template-store"}),
	}
}

// Upsert inserts or replaces one template record.
func (s *TemplateStore) Upsert(ctx context.Context, tpl models.MailjetTemplate) error {
	variables, err := json.Marshal(tpl.Variables)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal template variables", err)
	}

	query := `INSERT INTO templates (template_id, name, locale, variables, refreshed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (template_id)
		DO UPDATE SET name = $2, locale = $3, variables = $4, refreshed_at = $5`

	_, err = s.db.ExecContext(ctx, query,
		tpl.TemplateID, tpl.Name, tpl.Locale, variables, time.Now().UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("upsert template", err)
	}
	return nil
}

// FindByID loads one template record.
func (s *TemplateStore) FindByID(ctx context.Context, templateID int64) (*models.MailjetTemplate, error) {
	query := `SELECT template_id, name, locale, variables FROM templates WHERE template_id = $1`

	var (
		tpl       models.MailjetTemplate
		variables []byte
	)
	err := s.db.QueryRowContext(ctx, query, templateID).
		Scan(&tpl.TemplateID, &tpl.Name, &tpl.Locale, &variables)
	if err == sql.ErrNoRows {
		return nil, errors.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("select template", err)
	}

	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &tpl.Variables); err != nil {
			return nil, errors.NewQueryExecutionFailedError("unmarshal template variables", err)
		}
	}
	return &tpl, nil
}

// GetRequiredVariables returns the variables a template references. An
// unknown template is a TEMPLATE_NOT_FOUND failure, not an empty result.
func (s *TemplateStore) GetRequiredVariables(ctx context.Context, templateID int64) (models.TemplateVariables, error) {
	tpl, err := s.FindByID(ctx, templateID)
	if err != nil {
		return models.TemplateVariables{}, err
	}
	return tpl.Variables, nil
}
