package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink apendea eventos en la tabla audit_event. Solo INSERT: la tabla no
// tiene updates ni deletes.
type PGSink struct {
	pool *pgxpool.Pool
}

func NewPGSink(pool *pgxpool.Pool) *PGSink { return &PGSink{pool: pool} }

func (s *PGSink) Append(ctx context.Context, ev Event) error {
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		meta = []byte("{}")
	}
	// timeout propio: el audit no puede colgar el request
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		INSERT INTO audit_event (id, subject, action, resource, metadata, ip, user_agent, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.pool.Exec(ctx, q, ev.ID, ev.Subject, ev.Action, ev.Resource, meta, ev.IP, ev.UserAgent, ev.At)
	return err
}
