// Package audit registra eventos append-only detrás de una interfaz angosta.
// Las fallas del sink se loguean y se tragan: nunca llegan al caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event es un registro append-only de una acción privilegiada.
type Event struct {
	ID        string         `json:"id"`
	Subject   string         `json:"subject"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	At        time.Time      `json:"at"`
}

// Sink persiste eventos. El backing store (log, tabla, pipeline) es
// intercambiable; la semántica swallow-on-failure la impone el caller.
type Sink interface {
	Append(ctx context.Context, ev Event) error
}

// Record completa id/timestamp y apendea, tragando cualquier falla.
// Es el único punto de entrada que deben usar los handlers.
func Record(ctx context.Context, sink Sink, ev Event, log *zap.Logger) {
	if sink == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := sink.Append(ctx, ev); err != nil && log != nil {
		log.Warn("audit append failed",
			zap.String("action", ev.Action),
			zap.Error(err),
		)
	}
}

// LogSink escribe los eventos como líneas JSON estructuradas vía zap.
type LogSink struct {
	Log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink { return &LogSink{Log: log} }

func (s *LogSink) Append(ctx context.Context, ev Event) error {
	s.Log.Info("audit",
		zap.String("id", ev.ID),
		zap.String("subject", ev.Subject),
		zap.String("action", ev.Action),
		zap.String("resource", ev.Resource),
		zap.Any("metadata", ev.Metadata),
		zap.String("ip", ev.IP),
		zap.String("user_agent", ev.UserAgent),
		zap.Time("at", ev.At),
	)
	return nil
}
