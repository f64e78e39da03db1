package notifier

import (
	"sync"
	"time"

	"lyrics-finder-go/circuitbreaker"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventCircuitBreakerOpen  EventType = "circuit_breaker_open"
	EventProviderAuthFailure EventType = "provider_auth_failure"

	// Warning events
	EventHighFailureRate EventType = "high_failure_rate"

	// Info events
	EventCircuitBreakerRecovered EventType = "circuit_breaker_recovered"
	EventPageCacheCleared        EventType = "page_cache_cleared"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event represents a system event
type Event struct {
	Type      EventType
	Severity  Severity
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

type EventHandler func(event *Event)

// EventBus fans events out to subscribers. Each handler runs on its own
// goroutine so publishers never wait on a slow channel.
type EventBus struct {
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
	mu          sync.RWMutex
}

var (
	globalBus *EventBus
	busOnce   sync.Once
)

func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

// GetEventBus returns the process-wide bus
func GetEventBus() *EventBus {
	busOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.allHandlers {
		go handler(event)
	}
}

// BreakerTransition matches circuitbreaker.TransitionFunc. Opening publishes a
// critical event, closing from any other state publishes a recovery.
func BreakerTransition(name string, from, to circuitbreaker.State) {
	switch {
	case to == circuitbreaker.StateOpen:
		PublishCircuitBreakerOpen(name, from)
	case to == circuitbreaker.StateClosed && from != circuitbreaker.StateClosed:
		PublishCircuitBreakerRecovered(name)
	}
}

func PublishCircuitBreakerOpen(name string, from circuitbreaker.State) {
	event := NewEvent(EventCircuitBreakerOpen, SeverityCritical,
		"Provider circuit breaker has opened").
		WithData("name", name).
		WithData("from", from.String())
	GetEventBus().Publish(event)
}

func PublishCircuitBreakerRecovered(name string) {
	event := NewEvent(EventCircuitBreakerRecovered, SeverityInfo,
		"Provider circuit breaker has recovered").
		WithData("name", name)
	GetEventBus().Publish(event)
}

// PublishHighFailureRate matches circuitbreaker.WarningFunc.
func PublishHighFailureRate(name string, failures, threshold int) {
	event := NewEvent(EventHighFailureRate, SeverityWarning,
		"High failure rate detected, circuit breaker may trip soon").
		WithData("name", name).
		WithData("failures", failures).
		WithData("threshold", threshold)
	GetEventBus().Publish(event)
}

// PublishProviderAuthFailure publishes when a provider rejects our credentials
func PublishProviderAuthFailure(provider string, statusCode int) {
	event := NewEvent(EventProviderAuthFailure, SeverityCritical,
		"Provider authentication failed").
		WithData("provider", provider).
		WithData("status_code", statusCode)
	GetEventBus().Publish(event)
}

func PublishPageCacheCleared(cleared int) {
	event := NewEvent(EventPageCacheCleared, SeverityInfo,
		"Regional page cache has been cleared").
		WithData("cleared", cleared)
	GetEventBus().Publish(event)
}
