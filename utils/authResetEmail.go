package utils

import (
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// ErrMailUnavailable is returned when no SMTP host is configured.
var ErrMailUnavailable = errors.New("mail delivery is not configured")

// ResetMailer sends password reset codes.
type ResetMailer struct {
	from string
	send func(m ...*gomail.Message) error
}

// NewResetMailer returns a mailer that always fails with ErrMailUnavailable
// when host is empty.
func NewResetMailer(host string, port int, user, password, from string) *ResetMailer {
	if host == "" {
		return &ResetMailer{from: from, send: func(...*gomail.Message) error { return ErrMailUnavailable }}
	}
	d := gomail.NewDialer(host, port, user, password)
	return &ResetMailer{from: from, send: d.DialAndSend}
}

func (r *ResetMailer) SendResetCodeEmail(email, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", r.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Password Reset Code")

	// Set the plain text body
	m.SetBody("text/plain", "Your password reset code is: "+code)

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Password Reset Code</title>
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
			.code {
				font-weight: bold;
				color: #2196f3;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<h1>Smart Health password reset</h1>
			<p>Your password reset code is:</p>
			<p class="code">` + code + `</p>
			<p>The code expires in 15 minutes. If you did not request a reset, ignore this email.</p>
		</div>
	</body>
	</html>
	`
	m.AddAlternative("text/html", htmlBody)

	if err := r.send(m); err != nil {
		return errors.Wrap(err, "failed to send reset code email")
	}
	return nil
}
