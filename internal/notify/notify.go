// Package notify mails a short summary after each crawl.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"uzdata-harvester/internal/pipeline"
	"uzdata-harvester/lib/telemetry"
	"uzdata-harvester/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("internal.notify")

type EmailConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c EmailConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func sendSMTP(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Notifier struct {
	cfg  EmailConfig
	send sendFunc
}

func NewNotifier(cfg EmailConfig) Notifier {
	return Notifier{cfg: cfg, send: sendSMTP}
}

type RunReport struct {
	RunID      string
	CatalogURL string
	Summary    pipeline.Summary
	// Err is the error the run stopped with, if any.
	Err error
}

func (n Notifier) Compose(report RunReport) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("uzdata harvester <%s>", n.cfg.EmailAddress)
	mail.To = n.cfg.To

	status := "finished"
	if report.Err != nil {
		status = "stopped"
	}
	mail.Subject = fmt.Sprintf(
		"harvester run %s: %d normalized, %d failed",
		status,
		report.Summary.Succeeded,
		report.Summary.Failed,
	)

	summary := report.Summary
	body := &strings.Builder{}
	fmt.Fprintf(body, "Run:        %s\n", report.RunID)
	fmt.Fprintf(body, "Catalog:    %s\n", report.CatalogURL)
	fmt.Fprintf(body, "Started:    %s\n", timezone.Format(summary.StartedAt))
	fmt.Fprintf(body, "Finished:   %s\n", timezone.Format(summary.FinishedAt))
	fmt.Fprintf(body, "Pages:      %d of %d\n", summary.PagesRead, summary.PageBound)
	fmt.Fprintf(body, "Normalized: %d\n", summary.Succeeded)
	fmt.Fprintf(body, "Failed:     %d (%d could not be extracted)\n", summary.Failed, summary.Skipped)
	if summary.Exhausted {
		fmt.Fprintf(body, "\nThe catalog ran out of entries after page %d.\n", summary.Page)
	}
	if report.Err != nil {
		fmt.Fprintf(body, "\nThe run stopped early: %v\n", report.Err)
	}
	mail.Text = []byte(body.String())
	return mail
}

func (n Notifier) Send(ctx context.Context, report RunReport) error {
	_, span := tracer.Start(ctx, "Notifier.Send")
	defer span.End()

	mail := n.Compose(report)
	addr := fmt.Sprintf("%s:%d", n.cfg.Server, n.cfg.Port)

	err := n.send(mail, addr, smtp.PlainAuth("", n.cfg.EmailAddress, n.cfg.Password, n.cfg.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
