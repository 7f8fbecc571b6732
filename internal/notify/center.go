package notify

import (
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DisplayWindow is how long a toast stays visible before it is discarded.
const DisplayWindow = 4 * time.Second

// Center is an append-only queue of toasts. Every toast carries its own
// expiry timer started at creation, so expired entries are removed even when
// no further activity touches the center. Identical events are never
// deduplicated.
type Center struct {
	mu     sync.Mutex
	toasts []models.Toast
	ttl    time.Duration
	logger *zap.Logger
}

// NewCenter creates a toast center with the standard display window.
func NewCenter() *Center {
	return NewCenterTTL(DisplayWindow)
}

// NewCenterTTL creates a toast center with a custom display window.
func NewCenterTTL(ttl time.Duration) *Center {
	return &Center{
		ttl:    ttl,
		logger: util.Named("notify"),
	}
}

// Push appends a toast and schedules its removal.
func (c *Center) Push(title, message, severity string) models.Toast {
	t := models.Toast{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.toasts = append(c.toasts, t)
	c.mu.Unlock()

	util.ToastsEmittedTotal.WithLabelValues(severity).Inc()
	c.logger.Debug("Toast emitted",
		zap.String("title", title),
		zap.String("severity", severity))

	time.AfterFunc(c.ttl, func() { c.remove(t.ID) })
	return t
}

// Success, Error, Info and Warning are severity shorthands.
func (c *Center) Success(title, message string) models.Toast {
	return c.Push(title, message, models.ToastSuccess)
}

func (c *Center) Error(title, message string) models.Toast {
	return c.Push(title, message, models.ToastError)
}

func (c *Center) Info(title, message string) models.Toast {
	return c.Push(title, message, models.ToastInfo)
}

func (c *Center) Warning(title, message string) models.Toast {
	return c.Push(title, message, models.ToastWarning)
}

// Active returns a copy of the toasts currently within their display window.
func (c *Center) Active() []models.Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

func (c *Center) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
}
