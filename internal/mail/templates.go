package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/reshmacrochets/backend/internal/token"
)

// The link paths below must match the frontend router.
const (
	verifyPath = "/verify-email/"
	resetPath  = "/reset-password/"
)

var baseTmpl = template.Must(template.New("base").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
    .content { background-color: #fdf6f0; padding: 20px; border-radius: 5px; }
    .button { display: inline-block; background-color: #c76b8e; color: white; text-decoration: none; padding: 10px 20px; border-radius: 5px; margin: 20px 0; }
    .footer { margin-top: 20px; font-size: 12px; color: #777; text-align: center; }
  </style>
</head>
<body>
  <div class="content">
    <p>Hi {{.Name}},</p>
    {{.Body}}
    <p style="text-align: center;"><a href="{{.Link}}" class="button">{{.Action}}</a></p>
    <p>{{.Expiry}}</p>
    <p>If you didn't request this, you can safely ignore this email.</p>
  </div>
  <div class="footer">
    <p>This is an automated message, please do not reply.</p>
  </div>
</body>
</html>
`))

type tmplData struct {
	Name   string
	Body   template.HTML
	Link   string
	Action string
	Expiry string
}

func render(data tmplData) string {
	var buf bytes.Buffer
	// The template is static and the data is plain strings; Execute cannot fail.
	_ = baseTmpl.Execute(&buf, data)
	return buf.String()
}

// VerificationMessage builds the subject and body of the email-verification
// message. secret is the cleartext one-time token; only its hash is stored.
func VerificationMessage(frontendURL, name, secret string) (subject, body string) {
	subject = "Verify your email address"
	body = render(tmplData{
		Name:   name,
		Body:   template.HTML("<p>Thanks for creating an account. Please confirm your email address to finish signing up.</p>"),
		Link:   frontendURL + verifyPath + secret,
		Action: "Verify Email",
		Expiry: "This link is valid for 24 hours.",
	})
	return subject, body
}

// ResetMessage builds the subject and body of the password-reset message.
func ResetMessage(frontendURL, name, secret string) (subject, body string) {
	subject = "Reset your password"
	body = render(tmplData{
		Name:   name,
		Body:   template.HTML("<p>We received a request to reset your password. Click the button below to choose a new one.</p>"),
		Link:   frontendURL + resetPath + secret,
		Action: "Reset Password",
		Expiry: fmt.Sprintf("This link is valid for %d minutes.", int(token.ResetSecretTTL.Minutes())),
	})
	return subject, body
}
