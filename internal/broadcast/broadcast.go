// Package broadcast fans an admin's message out to every active user.
//
// An admin first arms a session; the next message that admin sends is the
// broadcast, after which the session is disarmed. Sessions are per admin.
package broadcast

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Sender delivers one message to one chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Recipients lists the chats a broadcast goes to.
type Recipients interface {
	ActiveIDs(ctx context.Context) ([]string, error)
}

// Report counts the outcome of one broadcast.
type Report struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Sessions tracks which admins have armed a broadcast. An armed session
// expires after ttl.
type Sessions struct {
	mu    sync.Mutex
	armed map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{armed: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *Sessions) Arm(adminID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed[adminID] = s.now()
}

func (s *Sessions) Disarm(adminID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, adminID)
}

// Armed reports whether adminID has a live session.
func (s *Sessions) Armed(adminID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(adminID)
}

// Take consumes adminID's session, reporting whether one was live.
func (s *Sessions) Take(adminID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.liveLocked(adminID)
	delete(s.armed, adminID)
	return live
}

func (s *Sessions) liveLocked(adminID string) bool {
	at, ok := s.armed[adminID]
	if !ok {
		return false
	}
	if s.ttl > 0 && s.now().Sub(at) > s.ttl {
		delete(s.armed, adminID)
		return false
	}
	return true
}

// Broadcaster sends messages through a Sender with bounded concurrency and a
// shared rate limit.
type Broadcaster struct {
	Sessions    *Sessions
	sender      Sender
	recipients  Recipients
	limiter     *rate.Limiter
	concurrency int
	log         logrus.FieldLogger
}

type Config struct {
	RatePerSecond float64 // 0 means unlimited
	Concurrency   int
	SessionTTL    time.Duration
}

func New(cfg Config, sender Sender, recipients Recipients, log logrus.FieldLogger) *Broadcaster {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	conc := cfg.Concurrency
	if conc <= 0 {
		conc = 4
	}
	return &Broadcaster{
		Sessions:    NewSessions(cfg.SessionTTL),
		sender:      sender,
		recipients:  recipients,
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: conc,
		log:         log,
	}
}

// Submit broadcasts text if adminID armed a session, disarming it. ok is
// false when no session was armed and nothing was sent.
func (b *Broadcaster) Submit(ctx context.Context, adminID, text string) (rep Report, ok bool, err error) {
	if !b.Sessions.Take(adminID) {
		return Report{}, false, nil
	}
	ids, err := b.recipients.ActiveIDs(ctx)
	if err != nil {
		return Report{}, true, fmt.Errorf("list recipients: %w", err)
	}
	rep, err = b.Fanout(ctx, ids, text)
	b.log.WithFields(logrus.Fields{
		"admin_id": adminID,
		"sent":     rep.Sent,
		"failed":   rep.Failed,
	}).Info("broadcast finished")
	return rep, true, err
}

// Fanout sends text to every id. Per-recipient failures are counted, not
// returned; the error is non-nil only if ctx ends first.
func (b *Broadcaster) Fanout(ctx context.Context, ids []string, text string) (Report, error) {
	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := b.limiter.Wait(gctx); err != nil {
				return err
			}
			if err := b.sender.SendMessage(gctx, id, text); err != nil {
				failed.Add(1)
				b.log.WithError(err).WithField("chat_id", id).Warn("broadcast send failed")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	err := g.Wait()
	rep := Report{Sent: int(sent.Load()), Failed: int(failed.Load())}
	if err != nil {
		return rep, fmt.Errorf("broadcast interrupted: %w", err)
	}
	return rep, nil
}
