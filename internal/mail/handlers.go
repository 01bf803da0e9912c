// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/kpi"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/metrics"
	"github.com/blazer82/analytodon-sub001/internal/stats"
)

// Mail kinds, used as metric labels.
const (
	KindWelcome        = "welcome"
	KindPasswordReset  = "password_reset"
	KindWeeklyStats    = "weekly_stats"
	KindDeletionNotice = "deletion_notice"
	KindFirstStats     = "first_stats"
)

// Handlers consume mail events and send the matching message.
type Handlers struct {
	mailer       Mailer
	publicURL    string
	supportEmail string
}

// NewHandlers builds handlers that link back to cfg.Server.PublicURL.
func NewHandlers(mailer Mailer, cfg *config.Config) *Handlers {
	return &Handlers{
		mailer:       mailer,
		publicURL:    strings.TrimRight(cfg.Server.PublicURL, "/"),
		supportEmail: cfg.Mail.SupportEmail,
	}
}

// Register subscribes every mail handler on router.
func (h *Handlers) Register(router *events.Router) {
	router.Handle("mail_welcome", events.TopicWelcome, h.handleWelcome)
	router.Handle("mail_password_reset", events.TopicPasswordReset, h.handlePasswordReset)
	router.Handle("mail_weekly_stats", events.TopicWeeklyStats, h.handleWeeklyStats)
	router.Handle("mail_deletion_notice", events.TopicDeletionNotice, h.handleDeletionNotice)
	router.Handle("mail_first_stats", events.TopicFirstStats, h.handleFirstStats)
}

// send delivers msg and records the outcome. Delivery errors are returned
// so the router retries them.
func (h *Handlers) send(ctx context.Context, kind string, msg Message) error {
	err := h.mailer.Send(ctx, msg)
	metrics.RecordMail(kind, err)
	logger := logging.Ctx(ctx).With().
		Str("kind", kind).
		Str("to", logging.SanitizeEmail(msg.To)).
		Logger()
	if err != nil {
		logger.Error().Err(err).Msg("Mail delivery failed")
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	logger.Info().Msg("Mail sent")
	return nil
}

// decode unmarshals msg into v. Malformed payloads are logged and acked.
func decode(ctx context.Context, kind string, msg *message.Message, v interface{}) bool {
	if err := events.Decode(msg, v); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("kind", kind).Msg("Dropping malformed mail event")
		metrics.RecordMail(kind, err)
		return false
	}
	return true
}

func (h *Handlers) link(path string, query url.Values) string {
	u := h.publicURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (h *Handlers) handleWelcome(ctx context.Context, msg *message.Message) error {
	var ev events.WelcomeMail
	if !decode(ctx, KindWelcome, msg, &ev) {
		return nil
	}
	return h.send(ctx, KindWelcome, h.welcomeMessage(&ev))
}

func (h *Handlers) handlePasswordReset(ctx context.Context, msg *message.Message) error {
	var ev events.PasswordResetMail
	if !decode(ctx, KindPasswordReset, msg, &ev) {
		return nil
	}
	return h.send(ctx, KindPasswordReset, h.passwordResetMessage(&ev))
}

func (h *Handlers) handleWeeklyStats(ctx context.Context, msg *message.Message) error {
	var ev events.WeeklyStatsMail
	if !decode(ctx, KindWeeklyStats, msg, &ev) {
		return nil
	}
	if len(ev.Accounts) == 0 {
		return nil
	}
	return h.send(ctx, KindWeeklyStats, h.weeklyStatsMessage(&ev))
}

func (h *Handlers) handleDeletionNotice(ctx context.Context, msg *message.Message) error {
	var ev events.DeletionNoticeMail
	if !decode(ctx, KindDeletionNotice, msg, &ev) {
		return nil
	}
	return h.send(ctx, KindDeletionNotice, h.deletionNoticeMessage(&ev))
}

func (h *Handlers) handleFirstStats(ctx context.Context, msg *message.Message) error {
	var ev events.FirstStatsMail
	if !decode(ctx, KindFirstStats, msg, &ev) {
		return nil
	}
	return h.send(ctx, KindFirstStats, h.firstStatsMessage(&ev))
}

func (h *Handlers) welcomeMessage(ev *events.WelcomeMail) Message {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("welcome to Analytodon! Please confirm your email address by opening the link below:\n\n")
	b.WriteString(h.link("/register/verify", url.Values{"token": {ev.VerificationToken}}))
	b.WriteString("\n\nAfter that, connect your first Mastodon account and we will start collecting your stats.\n")
	h.signature(&b)
	return Message{To: ev.Email, Subject: "Welcome to Analytodon", Body: b.String()}
}

func (h *Handlers) passwordResetMessage(ev *events.PasswordResetMail) Message {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("someone asked to reset the password of your Analytodon account. To choose a new password, open:\n\n")
	b.WriteString(h.link("/reset-password", url.Values{"token": {ev.ResetToken}}))
	b.WriteString("\n\nIf this was not you, ignore this mail. Your password stays unchanged.\n")
	h.signature(&b)
	return Message{To: ev.Email, Subject: "Reset your Analytodon password", Body: b.String()}
}

func (h *Handlers) weeklyStatsMessage(ev *events.WeeklyStatsMail) Message {
	unsubscribe := h.link("/unsubscribe/weekly", url.Values{"u": {ev.UserID}, "e": {ev.Email}})

	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("here is how your Mastodon accounts did last week.\n")
	for i := range ev.Accounts {
		writeSummary(&b, &ev.Accounts[i])
	}
	b.WriteString("\nSee the details on your dashboard: ")
	b.WriteString(h.publicURL)
	b.WriteString("\n\nDon't want these mails any more? Unsubscribe here:\n")
	b.WriteString(unsubscribe)
	b.WriteString("\n")
	h.signature(&b)
	return Message{
		To:             ev.Email,
		Subject:        "Your weekly Mastodon stats",
		Body:           b.String(),
		UnsubscribeURL: unsubscribe,
	}
}

func writeSummary(b *strings.Builder, s *stats.AccountSummary) {
	fmt.Fprintf(b, "\n%s\n", s.AccountName)
	fmt.Fprintf(b, "  New followers: %s\n", formatKPI(&s.Followers))
	fmt.Fprintf(b, "  Replies:       %s\n", formatKPI(&s.Replies))
	fmt.Fprintf(b, "  Boosts:        %s\n", formatKPI(&s.Boosts))
	fmt.Fprintf(b, "  Favorites:     %s\n", formatKPI(&s.Favorites))
}

// formatKPI renders "42 (+5.0%)", "42" without a trend, or "no data".
func formatKPI(k *kpi.KPI) string {
	if k.CurrentPeriod == nil {
		return "no data"
	}
	out := fmt.Sprint(*k.CurrentPeriod)
	if k.Trend != nil {
		out += fmt.Sprintf(" (%+.1f%%)", *k.Trend*100)
	}
	return out
}

func (h *Handlers) deletionNoticeMessage(ev *events.DeletionNoticeMail) Message {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	b.WriteString("you have not logged in to Analytodon for a long time. ")
	fmt.Fprintf(&b, "Unless you log in before %s, your account and all collected statistics will be deleted.\n\n",
		ev.DeleteAfter.UTC().Format("January 2, 2006"))
	b.WriteString("Log in here to keep your account: ")
	b.WriteString(h.link("/login", nil))
	b.WriteString("\n")
	h.signature(&b)
	return Message{To: ev.Email, Subject: "Your Analytodon account will be deleted", Body: b.String()}
}

func (h *Handlers) firstStatsMessage(ev *events.FirstStatsMail) Message {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	fmt.Fprintf(&b, "the first statistics for %s are ready. Take a look:\n\n", ev.AccountName)
	b.WriteString(h.link("/dashboard", url.Values{"account": {ev.AccountID}}))
	b.WriteString("\n\nFrom now on, your stats are updated every hour.\n")
	h.signature(&b)
	return Message{To: ev.Email, Subject: "Your Mastodon stats are ready", Body: b.String()}
}

func (h *Handlers) signature(b *strings.Builder) {
	b.WriteString("\nCheers,\nAnalytodon\n")
	if h.supportEmail != "" {
		fmt.Fprintf(b, "\nQuestions? Write to %s\n", h.supportEmail)
	}
}
