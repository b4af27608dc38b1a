// internal/models/notification.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the delivery medium of a notification.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

// ParseChannel normalizes a channel string case-insensitively.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToUpper(s)) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelSMS:
		return ChannelSMS, nil
	case ChannelPush:
		return ChannelPush, nil
	}
	return "", fmt.Errorf("unknown channel: %s", s)
}

// Scope is the recipient-selection strategy of a notification.
type Scope string

const (
	ScopeIndividual Scope = "INDIVIDUAL"
	ScopeGlobal     Scope = "GLOBAL"
	ScopeWorkplace  Scope = "WORKPLACE"
	ScopeSegment    Scope = "SEGMENT"
)

// ParseScope normalizes a scope string case-insensitively.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToUpper(s)) {
	case ScopeIndividual:
		return ScopeIndividual, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeWorkplace:
		return ScopeWorkplace, nil
	case ScopeSegment:
		return ScopeSegment, nil
	}
	return "", fmt.Errorf("unknown scope: %s", s)
}

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Address is a named email address.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Recipient is one email recipient entry: one or more addresses plus the
// per-recipient template variables.
type Recipient struct {
	Email     []Address              `json:"email"`
	Variables map[string]interface{} `json:"variables"`
}

// EmailFields carries the EMAIL variant of a notification. Exactly one of
// TemplateID or the plain/HTML content pair must be populated.
type EmailFields struct {
	SenderName   string      `json:"emailSenderName"`
	SenderEmail  string      `json:"emailSenderEmail"`
	Subject      string      `json:"emailSubject"`
	ContentPlain string      `json:"emailContentPlain,omitempty"`
	ContentHTML  string      `json:"emailContentHtml,omitempty"`
	TemplateID   int64       `json:"templateId"`
	Recipients   []Recipient `json:"recipients,omitempty"`
	Cc           []Address   `json:"emailRecipientsCc,omitempty"`
	Bcc          []Address   `json:"emailRecipientsBcc,omitempty"`
	ReplyTo      *Address    `json:"emailRecipientsReplyTo,omitempty"`
	Attachments  []string    `json:"binaryAttachments,omitempty"`
}

// SMSFields carries the SMS variant. SenderName is capped at 11 characters
// and Content at 320; the target phone comes from the user record.
type SMSFields struct {
	SenderName string `json:"smsSenderName"`
	Content    string `json:"smsContent"`
}

// PushFields carries the PUSH variant. Topic may be a plain string or an
// absolute URL.
type PushFields struct {
	Topic    string `json:"topic"`
	Title    string `json:"pushTitle"`
	Subtitle string `json:"pushSubtitle,omitempty"`
	Content  string `json:"pushContent"`
}

// Callback describes an optional webhook invoked on completion.
type Callback struct {
	URL    string `json:"url"`
	Method string `json:"method,omitempty"`
}

// Notification is a tagged union keyed by Channel: exactly one of Email,
// SMS or Push is non-nil.
type Notification struct {
	ID          string     `json:"id"`
	Channel     Channel    `json:"channel"`
	Scope       Scope      `json:"scope"`
	ScopeTarget []string   `json:"scopeTarget,omitempty"`
	Status      Status     `json:"status"`
	SendAfter   *time.Time `json:"sendAfter,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Callback    *Callback  `json:"callback,omitempty"`

	Email *EmailFields `json:"email,omitempty"`
	SMS   *SMSFields   `json:"sms,omitempty"`
	Push  *PushFields  `json:"push,omitempty"`
}

// MarkCompleted records completion. Calling it again overwrites CompletedAt
// with a newer timestamp; the completion marker is at-least-once, not a
// per-recipient delivery acknowledgment.
func (n *Notification) MarkCompleted(at time.Time) {
	n.CompletedAt = &at
	n.Status = StatusSent
}

// DispatchCommand is the async message carried on the queue: it identifies a
// persisted notification and the channel to deliver on.
type DispatchCommand struct {
	NotificationID string `json:"notificationId"`
	Channel        string `json:"channel"`
}
