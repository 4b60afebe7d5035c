package roster_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/roster"
	"github.com/Tiliavir/shiftr/internal/shift"
	"github.com/Tiliavir/shiftr/internal/storage"
)

type recordingPublisher struct {
	mu    sync.Mutex
	views []*roster.View
	gate  chan struct{}
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, _ *model.Settings, v *roster.View) error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, v)
	return p.err
}

func (p *recordingPublisher) last() *roster.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.views) == 0 {
		return nil
	}
	return p.views[len(p.views)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.views)
}

func openStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	s, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func bind(t *testing.T, s storage.Store, org string) {
	t.Helper()
	channel, msg := "chan-1", "msg-1"
	_, err := s.UpsertSettings(context.Background(), org, model.SettingsUpdate{
		ChannelID:       &channel,
		RosterMessageID: &msg,
	})
	require.NoError(t, err)
}

func TestBuild(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	m := shift.New(s)
	_, err := m.StartShift(ctx, "org", "w1", "Ada")
	require.NoError(t, err)
	_, err = s.GetOrCreateWorker(ctx, "org", "w2")
	require.NoError(t, err)

	v, err := roster.Build(ctx, s, "org", time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, v.RenderID)
	require.Len(t, v.Entries, 1)
	assert.Equal(t, "Ada", v.Entries[0].DisplayName)
}

func TestRefreshUnbound(t *testing.T) {
	s := openStore(t)
	pub := &recordingPublisher{}
	r := roster.NewRefresher(s, pub)

	_, err := r.Refresh(context.Background(), "org")
	assert.ErrorIs(t, err, roster.ErrUnbound)

	channel := "chan-1"
	_, err = s.UpsertSettings(context.Background(), "org", model.SettingsUpdate{ChannelID: &channel})
	require.NoError(t, err)
	_, err = r.Refresh(context.Background(), "org")
	assert.ErrorIs(t, err, roster.ErrUnbound)
	assert.Zero(t, pub.count())
}

func TestRefreshPublisherError(t *testing.T) {
	s := openStore(t)
	bind(t, s, "org")
	pub := &recordingPublisher{err: errors.New("api down")}
	r := roster.NewRefresher(s, pub)

	_, err := r.Refresh(context.Background(), "org")
	assert.ErrorContains(t, err, "api down")
}

func TestTriggerRendersAfterTransitions(t *testing.T) {
	s := openStore(t)
	bind(t, s, "org")
	pub := &recordingPublisher{}
	r := roster.NewRefresher(s, pub)
	r.Start()

	m := shift.New(s, shift.WithHook(r.Trigger))
	ctx := context.Background()
	for _, w := range []string{"a", "b", "c"} {
		_, err := m.StartShift(ctx, "org", w, "")
		require.NoError(t, err)
	}
	_, err := m.EndShift(ctx, "org", "b", "")
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx))

	last := pub.last()
	require.NotNil(t, last)
	ids := make([]string, 0, len(last.Entries))
	for _, e := range last.Entries {
		ids = append(ids, e.WorkerID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
	assert.LessOrEqual(t, pub.count(), 4)
}

func TestTriggerDuringRenderRendersAgain(t *testing.T) {
	s := openStore(t)
	bind(t, s, "org")
	pub := &recordingPublisher{gate: make(chan struct{})}
	r := roster.NewRefresher(s, pub)
	r.Start()
	ctx := context.Background()

	r.Trigger("org")
	// The first render is now blocked inside Publish. Change state and
	// trigger again before letting it finish.
	time.Sleep(20 * time.Millisecond)
	m := shift.New(s)
	_, err := m.StartShift(ctx, "org", "late", "")
	require.NoError(t, err)
	r.Trigger("org")

	close(pub.gate)
	require.NoError(t, r.Close(ctx))

	last := pub.last()
	require.NotNil(t, last)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, "late", last.Entries[0].WorkerID)
}

func TestTriggerAfterCloseIsIgnored(t *testing.T) {
	s := openStore(t)
	bind(t, s, "org")
	pub := &recordingPublisher{}
	r := roster.NewRefresher(s, pub)
	require.NoError(t, r.Close(context.Background()))

	r.Trigger("org")
	assert.Zero(t, pub.count())
}
