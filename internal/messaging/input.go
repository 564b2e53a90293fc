package messaging

import (
	"net/url"
	"strings"
	"time"

	"messaging-service/internal/errs"
	"messaging-service/internal/models"
)

// AttachmentInput is a pre-uploaded file. Type wins over MimeType when both are set.
type AttachmentInput struct {
	URL      string          `json:"url"`
	MimeType string          `json:"mime_type"`
	Type     models.FileType `json:"type"`
}

type SendInput struct {
	SenderID    string
	RecipientID string
	Body        string
	Attachment  *AttachmentInput
}

// ThreadQuery selects a window of a thread. Zero values fall back to the first
// page of DefaultLimit messages.
type ThreadQuery struct {
	Limit  int
	Page   int
	Before *time.Time
}

type DeleteResult struct {
	ID string `json:"id"`
}

func (q ThreadQuery) page() models.Page {
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return models.Page{Limit: limit, Offset: (page - 1) * limit, Before: q.Before}
}

func (in SendInput) message() (models.Message, error) {
	sender := strings.TrimSpace(in.SenderID)
	recipient := strings.TrimSpace(in.RecipientID)
	if sender == "" || recipient == "" {
		return models.Message{}, errs.InvalidMessage("sender and recipient are required")
	}
	if sender == recipient {
		return models.Message{}, errs.InvalidMessage("cannot message yourself")
	}

	msg := models.Message{SenderID: sender, RecipientID: recipient}
	if strings.TrimSpace(in.Body) != "" {
		msg.Body = in.Body
	}
	if in.Attachment != nil {
		att, err := in.Attachment.resolve()
		if err != nil {
			return models.Message{}, err
		}
		msg.Attachment = att
	}
	if msg.Body == "" && msg.Attachment == nil {
		return models.Message{}, errs.InvalidMessage("body or attachment is required")
	}
	return msg, nil
}

// resolve validates the attachment. An input with neither URL nor type is
// treated as absent.
func (a AttachmentInput) resolve() (*models.Attachment, error) {
	raw := strings.TrimSpace(a.URL)
	if raw == "" {
		if a.Type == "" && a.MimeType == "" {
			return nil, nil
		}
		return nil, errs.InvalidMessage("attachment url is required")
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.InvalidMessage("attachment url must be an absolute http(s) url")
	}

	fileType := a.Type
	if fileType == "" {
		fileType = models.FileTypeFromMIME(a.MimeType)
	}
	if !fileType.Valid() {
		return nil, errs.InvalidMessage("unsupported attachment type " + string(fileType))
	}
	return &models.Attachment{URL: raw, Type: fileType}, nil
}
