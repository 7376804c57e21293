package broadcast

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	got  []string
	fail map[string]bool
}

func (f *fakeSender) SendMessage(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errors.New("blocked")
	}
	f.got = append(f.got, chatID+":"+text)
	return nil
}

type staticRecipients []string

func (s staticRecipients) ActiveIDs(context.Context) ([]string, error) { return s, nil }

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSubmitRequiresArmedSession(t *testing.T) {
	sender := &fakeSender{}
	b := New(Config{Concurrency: 2}, sender, staticRecipients{"1", "2"}, quietLog())
	ctx := context.Background()

	_, ok, err := b.Submit(ctx, "admin", "hi")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sender.got)

	b.Sessions.Arm("admin")
	rep, ok, err := b.Submit(ctx, "admin", "hi")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Report{Sent: 2}, rep)

	// disarmed after one message
	_, ok, _ = b.Submit(ctx, "admin", "again")
	assert.False(t, ok)
}

func TestSessionsArePerAdmin(t *testing.T) {
	s := NewSessions(0)
	s.Arm("a")
	assert.True(t, s.Armed("a"))
	assert.False(t, s.Armed("b"))
	assert.False(t, s.Take("b"))
	assert.True(t, s.Armed("a"))
	s.Disarm("a")
	assert.False(t, s.Armed("a"))
}

func TestSessionsExpire(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.Arm("a")
	now = now.Add(2 * time.Minute)
	assert.False(t, s.Take("a"))
}

func TestFanoutCountsFailures(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"3": true, "5": true}}
	b := New(Config{Concurrency: 3, RatePerSecond: 1000}, sender, nil, quietLog())

	rep, err := b.Fanout(context.Background(), []string{"1", "2", "3", "4", "5"}, "x")
	require.NoError(t, err)
	assert.Equal(t, Report{Sent: 3, Failed: 2}, rep)

	sort.Strings(sender.got)
	assert.Equal(t, []string{"1:x", "2:x", "4:x"}, sender.got)
}

func TestFanoutStopsOnCancel(t *testing.T) {
	sender := &fakeSender{}
	b := New(Config{Concurrency: 1, RatePerSecond: 0.001}, sender, nil, quietLog())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rep, err := b.Fanout(ctx, []string{"1", "2", "3"}, "x")
	require.Error(t, err)
	assert.Less(t, rep.Sent, 3)
}
