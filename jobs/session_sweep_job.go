package jobs

import (
	"time"

	"go.uber.org/zap"
)

type IdleSessionEvicter interface {
	EvictIdle(maxIdle time.Duration) int
}

// SessionSweep ends profile sessions that have not been used for a while.
type SessionSweep struct {
	sessions IdleSessionEvicter
	maxIdle  time.Duration
	log      *zap.Logger
}

func NewSessionSweep(sessions IdleSessionEvicter, maxIdle time.Duration, log *zap.Logger) *SessionSweep {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionSweep{sessions: sessions, maxIdle: maxIdle, log: log}
}

// Run is the cron entry point.
func (j *SessionSweep) Run() {
	if evicted := j.sessions.EvictIdle(j.maxIdle); evicted > 0 {
		j.log.Info("evicted idle profile sessions", zap.Int("count", evicted), zap.Duration("max_idle", j.maxIdle))
	}
}
