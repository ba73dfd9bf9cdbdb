package emails

import (
	"fmt"
	"strings"
	"time"
)

const (
	brandName    = "CarbonMarket"
	supportEmail = "support@carbonmarket.app"

	themePrimary   = "#15803D"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F0FDF4"
	themeWhite     = "#FFFFFF"
)

// EmailLayout wraps content in the shared branded shell.
func EmailLayout(contentHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <style>
    body { margin: 0; padding: 0; background-color: %s; font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %s; }
    .content p { margin: 0 0 20px 0; font-size: 16px; line-height: 1.6; }
    .content h1 { font-size: 22px; margin: 0 0 18px 0; }
    .content a { color: %s; font-weight: 600; }
    .cm-button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 28px; border-radius: 6px; text-decoration: none; font-weight: 600; }
    .receipt { width: 100%%; margin-bottom: 20px; }
    .receipt td { padding: 6px 0; border-bottom: 1px solid #E5E7EB; }
    .muted, .footer { color: %s; font-size: 13px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellspacing="0" cellpadding="0">
    <tr><td align="center" style="padding: 40px 0;">
      <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="background-color: %s; border-radius: 8px;">
        <tr><td align="center" style="padding: 36px 0 20px 0; font-size: 20px; font-weight: 700; color: %s;">%s</td></tr>
        <tr><td class="content" style="padding: 0 48px 24px 48px;">%s</td></tr>
        <tr><td class="footer" align="center" style="padding: 24px 48px 36px 48px;">
          Questions? Write to <a href="mailto:%s">%s</a><br>
          &copy; %d %s
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`,
		brandName, themeBgBody, themeTextMain, themePrimary, themePrimary, themeTextMuted,
		themeWhite, themePrimary, brandName, contentHTML, supportEmail, supportEmail, time.Now().Year(), brandName)
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
