package template

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

// HTTPClient is the outbound HTTP dependency.
type HTTPClient interface {
	DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client reads templates from the Mailjet REST API.
type Client struct {
	httpClient HTTPClient
	config     config.MailjetConfig
	logger     logger.Logger
}

func NewClient(httpClient HTTPClient, cfg config.MailjetConfig, log logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "template"}),
	}
}

// Summary is one entry of the template list endpoint.
type Summary struct {
	ID     int64  `json:"ID"`
	Name   string `json:"Name"`
	Locale string `json:"Locale"`
}

type listResponse struct {
	Count int       `json:"Count"`
	Data  []Summary `json:"Data"`
}

type detailContentResponse struct {
	Count int `json:"Count"`
	Data  []struct {
		HTMLPart string `json:"Html-part"`
		TextPart string `json:"Text-part"`
	} `json:"Data"`
}

// ListTemplates returns the account's template summaries.
func (c *Client) ListTemplates(ctx context.Context) ([]Summary, error) {
	body, err := c.get(ctx, c.config.TemplateURL, 0)
	if err != nil {
		return nil, err
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewTransportError("mailjet", err)
	}
	return parsed.Data, nil
}

// FetchVariables downloads one template's body and scrapes the variables it
// references.
func (c *Client) FetchVariables(ctx context.Context, templateID int64) (models.TemplateVariables, error) {
	url := fmt.Sprintf("%s/%d/detailcontent", c.config.TemplateURL, templateID)
	body, err := c.get(ctx, url, templateID)
	if err != nil {
		return models.TemplateVariables{}, err
	}

	var parsed detailContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.TemplateVariables{}, errors.NewTransportError("mailjet", err)
	}
	if parsed.Count == 0 || len(parsed.Data) == 0 {
		return models.TemplateVariables{}, errors.NewTemplateNotFoundError(templateID)
	}

	return ScrapeVariables(parsed.Data[0].HTMLPart + "\n" + parsed.Data[0].TextPart), nil
}

func (c *Client) get(ctx context.Context, url string, templateID int64) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewTransportError("mailjet", err)
	}
	req.SetBasicAuth(c.config.APIKey, c.config.SecretKey)

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewTransportError("mailjet", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && templateID != 0 {
		return nil, errors.NewTemplateNotFoundError(templateID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewTransportError("mailjet",
			fmt.Errorf("template API returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("mailjet", err)
	}
	return body, nil
}
