package factory

import (
	"encoding/json"
	"strings"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/validation"
	"notification-dispatcher/internal/models"
)

var baseProperties = map[string]interface{}{
	"channel": map[string]interface{}{
		"type": "string",
		"enum": []interface{}{"EMAIL", "SMS", "PUSH", "email", "sms", "push"},
	},
	"scope": map[string]interface{}{
		"type": "string",
		"enum": []interface{}{
			"INDIVIDUAL", "GLOBAL", "WORKPLACE", "SEGMENT",
			"individual", "global", "workplace", "segment",
		},
	},
	"scopeTarget": map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	},
	"sendAfter": map[string]interface{}{"type": "string"},
	"callback": map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"url"},
		"properties": map[string]interface{}{
			"url":    map[string]interface{}{"type": "string", "minLength": 1},
			"method": map[string]interface{}{"type": "string"},
		},
	},
}

var channelSchemas = map[models.Channel]map[string]interface{}{
	models.ChannelEmail: buildSchema(map[string]interface{}{
		"emailSenderName":   map[string]interface{}{"type": "string", "minLength": 1},
		"emailSenderEmail":  map[string]interface{}{"type": "string", "minLength": 1},
		"emailSubject":      map[string]interface{}{"type": "string", "minLength": 1},
		"emailContentPlain": map[string]interface{}{"type": "string"},
		"emailContentHtml":  map[string]interface{}{"type": "string"},
		"templateId":        map[string]interface{}{"type": "integer"},
		"recipients": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"email"},
				"properties": map[string]interface{}{
					"email": map[string]interface{}{
						"type":     "array",
						"minItems": 1,
						"items": map[string]interface{}{
							"type":     "object",
							"required": []interface{}{"address"},
						},
					},
					"variables": map[string]interface{}{"type": "object"},
				},
			},
		},
	}, "emailSenderName", "emailSenderEmail", "emailSubject"),

	models.ChannelSMS: buildSchema(map[string]interface{}{
		"smsSenderName": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 11},
		"smsContent":    map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 320},
	}, "smsSenderName", "smsContent"),

	models.ChannelPush: buildSchema(map[string]interface{}{
		"topic":        map[string]interface{}{"type": "string"},
		"pushTitle":    map[string]interface{}{"type": "string", "minLength": 1},
		"pushSubtitle": map[string]interface{}{"type": "string"},
		"pushContent":  map[string]interface{}{"type": "string", "minLength": 1},
	}, "pushTitle", "pushContent"),
}

func buildSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	props := make(map[string]interface{}, len(baseProperties)+len(properties))
	for k, v := range baseProperties {
		props[k] = v
	}
	for k, v := range properties {
		props[k] = v
	}

	req := []interface{}{"channel", "scope"}
	for _, r := range required {
		req = append(req, r)
	}

	return map[string]interface{}{
		"type":       "object",
		"required":   req,
		"properties": props,
	}
}

// ValidateInput checks the generic payload against the declared channel's
// schema before any factory runs.
func ValidateInput(in *Input) error {
	channel, err := models.ParseChannel(in.Channel)
	if err != nil {
		return errors.NewValidationFailedError(err.Error())
	}

	schema, ok := channelSchemas[channel]
	if !ok {
		return errors.NewNoFactoryFoundError(in.Channel)
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return errors.NewValidationFailedError(err.Error())
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.NewValidationFailedError(err.Error())
	}

	result, err := validation.ValidateAgainstSchema(payload, schema)
	if err != nil {
		return errors.NewValidationFailedError(err.Error())
	}
	if !result.Valid {
		return errors.NewValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}
