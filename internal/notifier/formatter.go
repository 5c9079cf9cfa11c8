package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"AutoTrader/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatSessionEvent formats a session transition for the chat.
func FormatSessionEvent(evt model.SessionEvent) string {
	at := evt.At.In(model.KST()).Format(timeLayout)
	switch evt.Kind {
	case model.EventStarted:
		return fmt.Sprintf("▶️ <b>Session started</b>\n%s KST", at)
	case model.EventStopping:
		return fmt.Sprintf("⏹ <b>Session stopping</b> (%s)\nLiquidating holdings...", evt.Reason)
	case model.EventTimedOut:
		return fmt.Sprintf("⏰ <b>Session timed out</b> after %s\nLiquidating holdings...", formatElapsed(evt.At.Sub(evt.StartedAt)))
	case model.EventStopped:
		return fmt.Sprintf("✅ <b>Session stopped</b> (%s)\nRan %s, ended %s KST", evt.Reason, formatElapsed(evt.At.Sub(evt.StartedAt)), at)
	default:
		return fmt.Sprintf("Session event %s", evt.Kind)
	}
}

// FormatStatus formats the controller state for /status.
func FormatStatus(state model.SessionState, startedAt time.Time, maxDuration time.Duration, now time.Time) string {
	var b strings.Builder
	b.WriteString("📟 <b>Session status</b>\n\n")
	b.WriteString(fmt.Sprintf("State: %s\n", state))
	if state != model.SessionIdle && !startedAt.IsZero() {
		elapsed := now.Sub(startedAt)
		b.WriteString(fmt.Sprintf("Started: %s KST\n", startedAt.In(model.KST()).Format(timeLayout)))
		b.WriteString(fmt.Sprintf("Elapsed: %s / %s\n", formatElapsed(elapsed), formatElapsed(maxDuration)))
	}
	return b.String()
}

// FormatBalances lists non-empty balances, quote currency first.
func FormatBalances(balances []model.Balance, quote string) string {
	rows := make([]model.Balance, 0, len(balances))
	for _, bal := range balances {
		if bal.Free+bal.Locked > 0 {
			rows = append(rows, bal)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if (rows[i].Currency == quote) != (rows[j].Currency == quote) {
			return rows[i].Currency == quote
		}
		return rows[i].Currency < rows[j].Currency
	})

	var b strings.Builder
	b.WriteString("💼 <b>Balances</b>\n\n")
	if len(rows) == 0 {
		b.WriteString("(empty)\n")
		return b.String()
	}
	for _, bal := range rows {
		if bal.Currency == quote {
			b.WriteString(fmt.Sprintf("%s: %.0f", bal.Currency, bal.Free))
		} else {
			b.WriteString(fmt.Sprintf("%s: %.8g @ %.2f", bal.Currency, bal.Free, bal.AvgBuyPrice))
		}
		if bal.Locked > 0 {
			b.WriteString(fmt.Sprintf(" (locked %.8g)", bal.Locked))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatOrder formats an exchange order for /order.
func FormatOrder(o model.OrderResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧾 <b>Order %s</b>\n\n", o.UUID))
	b.WriteString(fmt.Sprintf("%s %s %s\n", o.Market, o.Side, o.Type))
	b.WriteString(fmt.Sprintf("State: %s\n", o.State))
	if !o.Price.IsZero() {
		b.WriteString(fmt.Sprintf("Price: %s\n", o.Price))
	}
	b.WriteString(fmt.Sprintf("Executed: %s / remaining %s\n", o.ExecutedVolume, o.RemainingVolume))
	b.WriteString(fmt.Sprintf("Fee: %s\n", o.PaidFee))
	if !o.CreatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Created: %s KST\n", o.CreatedAt.In(model.KST()).Format(timeLayout)))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Commands:\n• /toggle start or stop the session\n• /status session state\n• /balances account balances\n• /order &lt;uuid&gt; order state"
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Second).String()
}
