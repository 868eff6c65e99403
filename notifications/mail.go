package notifications

import (
	"context"
	"html"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// MailNotifier emails every staff recipient of the event.
type MailNotifier struct {
	from string
	send func(m ...*gomail.Message) error
}

func NewMailNotifier(host string, port int, user, password, from string) *MailNotifier {
	d := gomail.NewDialer(host, port, user, password)
	return &MailNotifier{from: from, send: d.DialAndSend}
}

func (n *MailNotifier) NotifySOS(ctx context.Context, event SOSEvent) error {
	if len(event.Recipients) == 0 {
		return nil
	}
	if err := n.send(n.buildMessage(event)); err != nil {
		return errors.Wrap(err, "failed to send sos email")
	}
	return nil
}

func (n *MailNotifier) buildMessage(event SOSEvent) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("Bcc", event.Recipients...)
	m.SetHeader("Subject", "SOS alert from "+event.PatientName)

	text := event.Message
	if text == "" {
		text = "No message was provided."
	}
	m.SetBody("text/plain", "Patient "+event.PatientName+" ("+event.PatientUniqueID+") raised an SOS alert at "+
		event.CreatedAt.Format("2006-01-02 15:04 MST")+".\n\n"+text)

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>SOS Alert</title>
		<style>
			body {
				font-family: Arial, sans-serif;
				background-color: #f4f4f4;
				margin: 0;
				padding: 0;
			}
			.container {
				background-color: #ffffff;
				margin: 20px auto;
				padding: 20px;
				border-radius: 8px;
				max-width: 600px;
			}
			h1 {
				color: #f44336;
			}
			.patient {
				font-weight: bold;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<h1>SOS Alert</h1>
			<p class="patient">` + html.EscapeString(event.PatientName) + ` (` + html.EscapeString(event.PatientUniqueID) + `)</p>
			<p>` + html.EscapeString(text) + `</p>
			<p>Acknowledge or resolve the alert from your dashboard.</p>
		</div>
	</body>
	</html>
	`
	m.AddAlternative("text/html", htmlBody)
	return m
}
