package webapp

import (
	"github.com/go-drift/miniapp/pkg/version"
)

// ImpactStyle is the weight of an impact.
type ImpactStyle string

const (
	ImpactLight  ImpactStyle = "light"
	ImpactMedium ImpactStyle = "medium"
	ImpactHeavy  ImpactStyle = "heavy"
	ImpactRigid  ImpactStyle = "rigid"
	ImpactSoft   ImpactStyle = "soft"
)

// NotificationType is the outcome a notification haptic conveys.
type NotificationType string

const (
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
)

type hapticPayload struct {
	Type             string           `json:"type"`
	ImpactStyle      ImpactStyle      `json:"impact_style,omitempty"`
	NotificationType NotificationType `json:"notification_type,omitempty"`
}

// HapticFeedback drives the device's vibration motor.
type HapticFeedback struct {
	app *WebApp
}

func (h *HapticFeedback) ImpactOccurred(style ImpactStyle) error {
	switch style {
	case ImpactLight, ImpactMedium, ImpactHeavy, ImpactRigid, ImpactSoft:
	default:
		return invalid("unknown impact style %q", style)
	}
	return h.trigger(hapticPayload{Type: "impact", ImpactStyle: style})
}

func (h *HapticFeedback) NotificationOccurred(t NotificationType) error {
	switch t {
	case NotificationError, NotificationSuccess, NotificationWarning:
	default:
		return invalid("unknown notification type %q", t)
	}
	return h.trigger(hapticPayload{Type: "notification", NotificationType: t})
}

func (h *HapticFeedback) SelectionChanged() error {
	return h.trigger(hapticPayload{Type: "selection_change"})
}

func (h *HapticFeedback) trigger(p hapticPayload) error {
	if err := h.app.guard(version.HapticFeedback); err != nil {
		return err
	}
	return h.app.notify("web_app_trigger_haptic_feedback", p)
}
