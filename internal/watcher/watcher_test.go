package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/italolelis/seedbox_bot/internal/access"
	"github.com/italolelis/seedbox_bot/internal/notifier"
	"github.com/italolelis/seedbox_bot/internal/present"
	"github.com/italolelis/seedbox_bot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	mu        sync.Mutex
	transfers []*transfer.Transfer
	err       error
	calls     int
	panicNext bool
}

func (f *fakeLister) List(context.Context) ([]*transfer.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.panicNext {
		f.panicNext = false
		panic("boom")
	}

	return f.transfers, f.err
}

func (f *fakeLister) set(list []*transfer.Transfer, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transfers, f.err = list, err
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

type sent struct {
	recipient int64
	text      string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[int64]error
}

func (f *fakeSender) SendText(_ context.Context, recipient int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failFor[recipient]; err != nil {
		return err
	}

	f.sent = append(f.sent, sent{recipient: recipient, text: text})

	return nil
}

func (f *fakeSender) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sent(nil), f.sent...)
}

type fakeSink struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Notify(_ context.Context, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.texts = append(f.texts, content)

	return f.err
}

func newWatcher(lister transfer.Lister, sender Sender, recipients []int64, notifyExisting bool, sinks ...notifier.Notifier) *Watcher {
	renderer := present.NewRenderer(present.DefaultGlyphs(), 10)

	return New(lister, access.NewGate(recipients), sender, renderer, nil, Config{
		Interval:              10 * time.Millisecond,
		NotifyExistingOnStart: notifyExisting,
	}, sinks...)
}

func done(id int64, name string) *transfer.Transfer {
	return &transfer.Transfer{ID: id, Name: name, Status: transfer.StatusSeeding, Progress: 100, Size: 1024}
}

func TestPoll_NotifiesOncePerCompletion(t *testing.T) {
	lister := &fakeLister{transfers: []*transfer.Transfer{
		done(1, "Finished"),
		{ID: 2, Name: "Halfway", Status: transfer.StatusDownloading, Progress: 50},
	}}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, true)

	for range 5 {
		require.NoError(t, w.Poll(context.Background()))
	}

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(100), msgs[0].recipient)
	assert.Contains(t, msgs[0].text, "Finished")
	assert.Equal(t, 1, w.Cache().Len())
}

func TestPoll_FansOutToEveryRecipientDespiteFailures(t *testing.T) {
	lister := &fakeLister{transfers: []*transfer.Transfer{done(1, "Finished")}}
	sender := &fakeSender{failFor: map[int64]error{200: errors.New("bot was blocked by the user")}}
	sink := &fakeSink{err: errors.New("webhook down")}
	w := newWatcher(lister, sender, []int64{100, 200, 300}, true, sink)

	require.NoError(t, w.Poll(context.Background()))
	require.NoError(t, w.Poll(context.Background()))

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(100), msgs[0].recipient)
	assert.Equal(t, int64(300), msgs[1].recipient)
	assert.Len(t, sink.texts, 1)
	assert.True(t, w.Cache().Contains(1))
}

func TestPoll_FetchFailureLeavesCacheUntouched(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, true)

	err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, w.Cache().Len())

	lister.set([]*transfer.Transfer{done(3, "Later")}, nil)
	require.NoError(t, w.Poll(context.Background()))
	assert.Len(t, sender.messages(), 1)
}

func TestPrime_SeedsCacheWithoutNotifying(t *testing.T) {
	lister := &fakeLister{transfers: []*transfer.Transfer{
		done(1, "Old"),
		{ID: 2, Name: "Running", Status: transfer.StatusDownloading, Progress: 40},
	}}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, false)

	require.NoError(t, w.Prime(context.Background()))
	assert.Empty(t, sender.messages())
	assert.True(t, w.Cache().Contains(1))
	assert.False(t, w.Cache().Contains(2))

	lister.set([]*transfer.Transfer{done(1, "Old"), done(2, "New")}, nil)
	require.NoError(t, w.Poll(context.Background()))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "New")
}

func TestPrime_FetchFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	w := newWatcher(lister, &fakeSender{}, []int64{100}, false)

	require.Error(t, w.Prime(context.Background()))
	assert.Zero(t, w.Cache().Len())
}

// startWatcher runs w until the test ends.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestRun_AnnouncesCompletionBeforeFirstTick(t *testing.T) {
	lister := &fakeLister{transfers: []*transfer.Transfer{
		done(1, "Old"),
		{ID: 7, Name: "Almost", Status: transfer.StatusDownloading, Progress: 99},
	}}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, false)
	w.cfg.Interval = 200 * time.Millisecond

	startWatcher(t, w)

	// The startup read happens before the first sleep.
	require.Eventually(t, func() bool { return w.Cache().Contains(1) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, lister.callCount())
	assert.Empty(t, sender.messages())

	lister.set([]*transfer.Transfer{done(1, "Old"), done(7, "Almost")}, nil)

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	msgs := sender.messages()
	assert.Contains(t, msgs[0].text, "Almost")
	assert.NotContains(t, msgs[0].text, "Old")
}

func TestRun_StartupFetchFailureDoesNotSwallowCompletions(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, false)
	w.cfg.Interval = 50 * time.Millisecond

	startWatcher(t, w)

	require.Eventually(t, func() bool { return lister.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, sender.messages())

	lister.set([]*transfer.Transfer{done(7, "Recovered")}, nil)

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, sender.messages()[0].text, "Recovered")
	assert.True(t, w.Cache().Contains(7))
}

func TestRun_PanicWhilePrimingKeepsPolling(t *testing.T) {
	lister := &fakeLister{panicNext: true}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, false)

	startWatcher(t, w)

	require.Eventually(t, func() bool { return lister.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	lister.set([]*transfer.Transfer{done(3, "After panic")}, nil)

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestPoll_NoRecipientsStillMarksCache(t *testing.T) {
	lister := &fakeLister{transfers: []*transfer.Transfer{done(1, "Finished")}}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, nil, true)

	require.NoError(t, w.Poll(context.Background()))
	assert.Empty(t, sender.messages())
	assert.True(t, w.Cache().Contains(1))
}

func TestRun_SurvivesPanicsAndStopsOnCancel(t *testing.T) {
	lister := &fakeLister{transfers: []*transfer.Transfer{done(1, "Finished")}, panicNext: true}
	sender := &fakeSender{}
	w := newWatcher(lister, sender, []int64{100}, true)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sender.messages()) == 1 && lister.callCount() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	assert.Len(t, sender.messages(), 1)
}

func TestCompletionCache_MarkIfNew(t *testing.T) {
	c := NewCompletionCache()

	assert.True(t, c.MarkIfNew(7))
	assert.False(t, c.MarkIfNew(7))
	assert.True(t, c.Contains(7))
	assert.False(t, c.Contains(8))
	assert.Equal(t, 1, c.Len())
}
