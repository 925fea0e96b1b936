package mailer

import (
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	templates "github.com/safenetshield/reportsafe-api/templates/html"
)

// Mailer sends transactional email through SendGrid. The API key is read
// from SENDGRID_API_KEY at send time so a missing key degrades to a logged
// warning instead of a startup failure.
type Mailer struct {
	FromName    string
	FromAddress string
}

// New returns a Mailer with the default ReportSafe sender identity.
func New() *Mailer {
	return &Mailer{
		FromName:    "ReportSafe",
		FromAddress: "no-reply@reportsafe.org",
	}
}

// SendResolutionFollowUp notifies a reporter that their case has been resolved.
// Intended to be called in a goroutine; failures are logged, never returned.
func (m *Mailer) SendResolutionFollowUp(email, caseID string) {
	subject := "Your ReportSafe case has been resolved"
	body := fmt.Sprintf("Your report %s has been reviewed and resolved by our safety team.\n\n"+
		"If you opted to have your data deleted after resolution, it will be removed automatically "+
		"during the next retention cycle.\n\n"+
		"If you need further help, reply to this email or visit our support directory.", caseID)
	m.send(email, subject, body)
}

// SendPasswordReset delivers a one-time password reset link to an admin.
func (m *Mailer) SendPasswordReset(email, resetURL string) {
	subject := "ReportSafe admin password reset"
	body := fmt.Sprintf("A password reset was requested for your ReportSafe admin account.\n\n"+
		"Reset your password here: %s\n\n"+
		"The link expires in 1 hour. If you did not request this, you can ignore this email.", resetURL)
	m.send(email, subject, body)
}

func (m *Mailer) send(email, subject, body string) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		zap.S().Warnw("SENDGRID_API_KEY not set, cannot send email", "email", email, "subject", subject)
		return
	}

	from := mail.NewEmail(m.FromName, m.FromAddress)
	to := mail.NewEmail("", email)
	htmlContent := templates.RenderGenericEmail(subject, body)
	message := mail.NewSingleEmail(from, subject, to, body, htmlContent)

	client := sendgrid.NewSendClient(apiKey)
	response, err := client.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send email", "email", email, "subject", subject, "error", err)
		return
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		zap.S().Infow("email sent", "email", email, "subject", subject, "statusCode", response.StatusCode)
	} else {
		zap.S().Warnw("email sent with non-2xx status", "email", email, "subject", subject,
			"statusCode", response.StatusCode, "body", response.Body)
	}
}
