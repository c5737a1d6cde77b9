package usecase

import (
	"regexp"
	"strings"

	"unibox-backend/pkg/platform"
)

// BotVerdict is the structured result of automated-account detection,
// computed once before identity resolution.
type BotVerdict struct {
	IsBot   bool     `json:"is_bot"`
	Reasons []string `json:"reasons,omitempty"`
}

var (
	botNamePattern  = regexp.MustCompile(`(?i)\b(bot|robot|automated|auto-?reply|mailer[- ]?daemon)\b`)
	botLocalParts   = []string{"noreply", "no-reply", "no_reply", "donotreply", "do-not-reply", "notifications", "notification", "mailer-daemon", "postmaster", "bounce", "alerts", "newsletter", "marketing"}
	botHandleSuffix = []string{"bot", "_bot", "-bot"}
)

// EvaluateBotRules inspects an incoming identity and reports whether it looks
// like an automated account rather than a person. Rules are evaluated in
// order and every triggered rule contributes a reason.
func EvaluateBotRules(identity *platform.Identity) BotVerdict {
	verdict := BotVerdict{}

	name := strings.ToLower(strings.TrimSpace(identity.Name))
	if botNamePattern.MatchString(name) {
		verdict.Reasons = append(verdict.Reasons, "display name matches automated-sender pattern")
	}

	if local := emailLocalPart(identity.Email); local != "" {
		for _, marker := range botLocalParts {
			if local == marker || strings.HasPrefix(local, marker+"+") || strings.HasPrefix(local, marker+".") {
				verdict.Reasons = append(verdict.Reasons, "email local part '"+local+"' is a known automated sender")
				break
			}
		}
	}

	if handle := strings.ToLower(strings.TrimSpace(identity.Handle)); handle != "" {
		for _, suffix := range botHandleSuffix {
			if strings.HasSuffix(handle, suffix) && len(handle) > len(suffix) {
				verdict.Reasons = append(verdict.Reasons, "handle '"+handle+"' carries a bot suffix")
				break
			}
		}
	}

	verdict.IsBot = len(verdict.Reasons) > 0
	return verdict
}

func emailLocalPart(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return ""
}
