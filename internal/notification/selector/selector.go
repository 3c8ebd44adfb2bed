// Package selector implements the channel decision cascade. All functions are
// pure: no side effects, no I/O, total over every context snapshot.
package selector

import "notifyd/internal/notification/domain"

// Rule names returned by Select, used verbatim in record log lines.
const (
	RuleActiveInApp   = "active_in_app"
	RuleAppReachable  = "app_reachable"
	RuleWhatsAppOptIn = "whatsapp_opt_in"
	RuleSMSLastResort = "sms_last_resort"
)

// Select maps a context snapshot to the initial delivery channel. The rules
// form a priority cascade; the first match wins.
//
//  1. app installed, foregrounded, device online -> IN_APP (user is present)
//  2. app installed, device online              -> PUSH (escalates)
//  3. WhatsApp opt-in, device online            -> WHATSAPP (escalates)
//  4. otherwise                                 -> SMS (terminal)
func Select(snap domain.ContextSnapshot) (domain.Channel, string) {
	switch {
	case snap.HasApp && snap.IsActive && snap.DeviceOnline:
		return domain.ChannelInApp, RuleActiveInApp
	case snap.HasApp && snap.DeviceOnline:
		return domain.ChannelPush, RuleAppReachable
	case snap.WhatsAppOptIn && snap.DeviceOnline:
		return domain.ChannelWhatsApp, RuleWhatsAppOptIn
	default:
		return domain.ChannelSMS, RuleSMSLastResort
	}
}

// Fallback returns the escalation channel for an unacknowledged dispatch on
// the given channel. PUSH downgrades to WHATSAPP when the user opted in,
// otherwise SMS; WHATSAPP always downgrades to SMS. Channels that never arm a
// timer fall through to SMS, but callers only invoke Fallback for escalating
// channels.
func Fallback(ch domain.Channel, snap domain.ContextSnapshot) domain.Channel {
	switch ch {
	case domain.ChannelPush:
		if snap.WhatsAppOptIn {
			return domain.ChannelWhatsApp
		}
		return domain.ChannelSMS
	default:
		return domain.ChannelSMS
	}
}

// NeedsEscalation reports whether a dispatch on ch arms a deadline timer.
// IN_APP is synchronous, SMS is already the last resort, and the binding
// channel expects an explicit out-of-band confirmation instead.
func NeedsEscalation(ch domain.Channel) bool {
	return ch == domain.ChannelPush || ch == domain.ChannelWhatsApp
}
