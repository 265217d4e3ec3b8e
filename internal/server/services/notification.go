package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/dbx"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/netx"
	"github.com/dmitrijs2005/rechub/internal/sanitize"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/mailer"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxAttachmentSize caps the attachment fetched for a dispatch.
	MaxAttachmentSize = 10 << 20
	// SendParallelism bounds concurrent SMTP sessions per dispatch.
	SendParallelism = 4
)

// Soft failure reasons.
const (
	ReasonNoRecipients  = "no-recipients"
	ReasonNoValidEmails = "no-valid-emails"
)

type EmailRequest struct {
	ProgramID     string `json:"programId"`
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
}

type FailedRecipient struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type DispatchResult struct {
	Success bool              `json:"success"`
	Reason  string            `json:"reason,omitempty"`
	Count   int               `json:"count"`
	Sent    int               `json:"sent"`
	Failed  []FailedRecipient `json:"failed,omitempty"`
	LogID   string            `json:"logId,omitempty"`
}

// Dispatcher emails every participant of a program.
type Dispatcher struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	sender      mailer.Sender
	log         logging.Logger
	// attachmentHosts are the only hosts attachments are fetched from.
	attachmentHosts map[string]struct{}
	fetch           func(ctx context.Context, rawURL string) (*netx.Attachment, error)
}

// NewDispatcher builds a dispatcher. A nil sender means mail is not
// configured and every dispatch fails with common.ErrUnconfigured.
// Attachment URLs must point at one of attachmentHosts; with none, every
// attachment is refused.
func NewDispatcher(db *sql.DB, m repomanager.RepositoryManager, sender mailer.Sender, attachmentHosts []string, log logging.Logger) *Dispatcher {
	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	hosts := make(map[string]struct{}, len(attachmentHosts))
	for _, h := range attachmentHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}
	return &Dispatcher{
		db:              db,
		repomanager:     m,
		sender:          sender,
		log:             log,
		attachmentHosts: hosts,
		fetch: func(ctx context.Context, rawURL string) (*netx.Attachment, error) {
			return netx.FetchAttachment(ctx, client, rawURL, MaxAttachmentSize)
		},
	}
}

// Dispatch sends req to each enrollment email of the program. Sends are
// independent; the call succeeds when at least one message went out.
func (d *Dispatcher) Dispatch(ctx context.Context, caller auth.Identity, req EmailRequest) (*DispatchResult, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	if d.sender == nil {
		return nil, fmt.Errorf("%w: email transport is not configured", common.ErrUnconfigured)
	}

	req.ProgramID = strings.TrimSpace(req.ProgramID)
	req.Subject = strings.TrimSpace(req.Subject)
	req.AttachmentURL = strings.TrimSpace(req.AttachmentURL)
	if req.ProgramID == "" || req.Subject == "" || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: programId, subject and message are required", common.ErrInvalidArgument)
	}
	if req.AttachmentURL != "" {
		u, err := url.Parse(req.AttachmentURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: attachmentUrl must be an http(s) URL", common.ErrInvalidArgument)
		}
		if _, ok := d.attachmentHosts[strings.ToLower(u.Host)]; !ok {
			return nil, fmt.Errorf("%w: attachmentUrl must point at the attachment store", common.ErrInvalidArgument)
		}
	}

	list, err := d.repomanager.Enrollments(d.db).ListByProgram(ctx, req.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	if len(list) == 0 {
		return &DispatchResult{Reason: ReasonNoRecipients}, nil
	}
	recipients := make([]string, 0, len(list))
	for _, e := range list {
		if email := strings.TrimSpace(e.Email); email != "" {
			recipients = append(recipients, email)
		}
	}
	if len(recipients) == 0 {
		return &DispatchResult{Reason: ReasonNoValidEmails}, nil
	}

	var attachment *netx.Attachment
	if req.AttachmentURL != "" {
		attachment, err = d.fetch(ctx, req.AttachmentURL)
		if err != nil {
			if errors.Is(err, netx.ErrTooLarge) {
				return nil, fmt.Errorf("%w: attachment exceeds %d bytes", common.ErrInvalidArgument, MaxAttachmentSize)
			}
			return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
	}

	message := sanitize.HTML(req.Message)
	body := RenderEmailBody(message, req.AttachmentURL)

	errs := make([]error, len(recipients))
	var g errgroup.Group
	g.SetLimit(SendParallelism)
	for i, to := range recipients {
		g.Go(func() error {
			errs[i] = d.sender.Send(ctx, mailer.Message{To: to, Subject: req.Subject, HTML: body, Attachment: attachment})
			return nil
		})
	}
	_ = g.Wait()

	res := &DispatchResult{Count: len(recipients)}
	var delivered, failed []string
	for i, to := range recipients {
		if errs[i] != nil {
			d.log.Warn(ctx, "email send failed", "program_id", req.ProgramID, "to", to, "error", errs[i])
			res.Failed = append(res.Failed, FailedRecipient{Email: to, Error: errs[i].Error()})
			failed = append(failed, to)
			continue
		}
		delivered = append(delivered, to)
	}
	res.Sent = len(delivered)

	if res.Sent == 0 {
		return nil, fmt.Errorf("%w: all %d sends failed: %v", common.ErrUnavailable, len(recipients), errors.Join(errs...))
	}
	res.Success = true

	entry := &models.EmailLog{
		SentBy:           caller.Email,
		ProgramID:        req.ProgramID,
		Subject:          req.Subject,
		Message:          message,
		Recipients:       delivered,
		FailedRecipients: failed,
	}
	if req.AttachmentURL != "" {
		u := req.AttachmentURL
		entry.AttachmentURL = &u
	}
	if err := d.repomanager.EmailLogs(d.db).Create(ctx, entry); err != nil {
		d.log.Error(ctx, "email log write failed", "program_id", req.ProgramID, "error", err)
	} else {
		res.LogID = entry.ID
	}

	d.log.Info(ctx, "program email dispatched", "program_id", req.ProgramID, "by", caller.Email,
		"count", res.Count, "sent", res.Sent)
	return res, nil
}

// RenderEmailBody wraps an already sanitized message and, when
// attachmentURL is set, appends a download link.
func RenderEmailBody(message, attachmentURL string) string {
	var b strings.Builder
	b.WriteString("<div>")
	b.WriteString(message)
	b.WriteString("</div>")
	if attachmentURL != "" {
		fmt.Fprintf(&b, `<p>Attachment: <a href="%s">Download</a></p>`, html.EscapeString(attachmentURL))
	}
	return b.String()
}
