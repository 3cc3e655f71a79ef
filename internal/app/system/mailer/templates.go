// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// OTPEmailData holds data for the email verification code message.
type OTPEmailData struct {
	SiteName  string
	Code      string
	ExpiresIn string // e.g., "10 minutes"
}

// BuildOTPEmail creates a verification code email with both HTML and text
// bodies. The caller sets To.
func BuildOTPEmail(data OTPEmailData) Email {
	return Email{
		Subject:  fmt.Sprintf("Your %s verification code", data.SiteName),
		TextBody: buildOTPText(data),
		HTMLBody: buildOTPHTML(data),
	}
}

func buildOTPText(data OTPEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Your %s verification code is: %s\n\n", data.SiteName, data.Code))
	buf.WriteString(fmt.Sprintf("This code expires in %s.\n\n", data.ExpiresIn))
	buf.WriteString("If you did not request this code, you can safely ignore this email.\n")
	return buf.String()
}

var otpHTML = template.Must(template.New("otp").Parse(otpHTMLTemplate))

func buildOTPHTML(data OTPEmailData) string {
	var buf bytes.Buffer
	_ = otpHTML.Execute(&buf, data)
	return buf.String()
}

const otpHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Verification Code</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f4;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f5f5f4;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; text-align: center; border-bottom: 1px solid #e7e5e4;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #7c2d12;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #44403c; line-height: 1.5;">
                Use this code to verify your email address:
              </p>
              <div style="background-color: #f5f5f4; border-radius: 8px; padding: 24px; text-align: center; margin-bottom: 24px;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1c1917; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>
              <p style="margin: 0; font-size: 13px; color: #a8a29e; text-align: center;">
                This code expires in {{.ExpiresIn}}.
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #fafaf9; border-top: 1px solid #e7e5e4; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #a8a29e; text-align: center;">
                If you did not request this code, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
