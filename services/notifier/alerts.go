package notifier

import (
	"fmt"
	"sync"
	"time"

	"lyrics-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// Default cooldown between alerts of the same type
const DefaultAlertCooldown = 15 * time.Minute

// AlertHandler turns bus events into notifications, at most one per event
// type and cooldown window.
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	mu               sync.Mutex
}

type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
	}
}

// Start subscribes the handler to bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

func (h *AlertHandler) HandleEvent(event *Event) {
	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	subject, message := FormatAlert(event)
	if subject == "" {
		return
	}
	h.sendAlert(subject, message)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// FormatAlert renders an event as a subject and body. Unknown events yield
// an empty subject.
func FormatAlert(event *Event) (subject, message string) {
	switch event.Type {
	case EventCircuitBreakerOpen:
		name := stringData(event, "name")
		subject = "Circuit Breaker OPEN"
		message = fmt.Sprintf(
			"The %s circuit breaker has opened (was %s).\n\n"+
				"Calls to %s are skipped and the next provider in the chain is used.\n\n"+
				"Action: Check %s status and credentials.",
			name, stringData(event, "from"), name, name)

	case EventProviderAuthFailure:
		provider := stringData(event, "provider")
		subject = "Provider Auth Failure"
		message = fmt.Sprintf(
			"%s rejected the access token with HTTP %d.\n\n"+
				"The token was dropped and will be exchanged again on the next call.\n\n"+
				"Action: If this repeats, check the %s client credentials.",
			provider, intData(event, "status_code"), provider)

	case EventHighFailureRate:
		subject = "High Failure Rate Warning"
		message = fmt.Sprintf(
			"The %s circuit breaker has recorded %d/%d consecutive failures.\n\n"+
				"If failures continue, the circuit will open.",
			stringData(event, "name"), intData(event, "failures"), intData(event, "threshold"))

	case EventCircuitBreakerRecovered:
		subject = "Circuit Breaker Recovered"
		message = fmt.Sprintf("The %s circuit breaker has closed and the provider is back in the chain.", stringData(event, "name"))

	case EventPageCacheCleared:
		subject = "Page Cache Cleared"
		message = fmt.Sprintf("The regional page cache was cleared (%d pages removed).", intData(event, "cleared"))

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}
	return subject, message
}

func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Warnf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(subject, message); err != nil {
			log.Errorf("%s Failed to send alert via %s: %v", logcolors.LogNotifier, TypeName(n), err)
			continue
		}
		successCount++
	}

	if successCount > 0 {
		log.Infof("%s Alert sent via %d/%d notifiers", logcolors.LogNotifier, successCount, len(h.notifiers))
	}
}

// ResetCooldown forces the next event of eventType to alert
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}

func stringData(event *Event, key string) string {
	v, _ := event.Data[key].(string)
	return v
}

func intData(event *Event, key string) int {
	v, _ := event.Data[key].(int)
	return v
}
