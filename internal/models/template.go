package models

// TemplateVariables are the placeholders discovered by scraping a provider
// template: scalar names plus per-loop-item attribute lists keyed by the
// loop variable.
type TemplateVariables struct {
	Scalars []string            `json:"scalars"`
	Groups  map[string][]string `json:"groups,omitempty"`
}

// IsEmpty reports whether the template declares no variables at all.
func (v TemplateVariables) IsEmpty() bool {
	return len(v.Scalars) == 0 && len(v.Groups) == 0
}

// MailjetTemplate is a locally cached provider template, refreshed by
// re-scraping the provider's template content.
type MailjetTemplate struct {
	TemplateID int64             `json:"templateId"`
	Name       string            `json:"name"`
	Locale     string            `json:"locale"`
	Variables  TemplateVariables `json:"variables"`
}
