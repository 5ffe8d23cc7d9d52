package popup

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/event"
	"github.com/jmylchreest/notifd/internal/model"
)

type fakeSurface struct {
	mu        sync.Mutex
	shownAt   []int
	positions []int
	closes    int
}

func (f *fakeSurface) Show(position int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shownAt = append(f.shownAt, position)
}

func (f *fakeSurface) UpdatePosition(position int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = append(f.positions, position)
}

func (f *fakeSurface) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
}

func (f *fakeSurface) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeSurface) lastPosition() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.positions) > 0 {
		return f.positions[len(f.positions)-1]
	}
	if len(f.shownAt) > 0 {
		return f.shownAt[len(f.shownAt)-1]
	}
	return -1
}

type harness struct {
	cfg      *config.Config
	events   *event.Queue[event.ServerEvent]
	feedback *event.Queue[event.UIEvent]

	mu        sync.Mutex
	surfaces  map[uint32][]*fakeSurface
	callbacks map[uint32]SurfaceCallbacks
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		cfg:       config.Default(),
		events:    event.NewQueue[event.ServerEvent](),
		feedback:  event.NewQueue[event.UIEvent](),
		surfaces:  make(map[uint32][]*fakeSurface),
		callbacks: make(map[uint32]SurfaceCallbacks),
	}
	h.cfg.Display.MaxVisible = 3
	h.cfg.Timeouts.Low = config.Duration(50 * time.Millisecond)
	h.cfg.Timeouts.Normal = config.Duration(50 * time.Millisecond)
	h.cfg.Timeouts.Critical = config.Duration(0)

	factory := func(n model.Notification, cb SurfaceCallbacks) (Surface, error) {
		s := &fakeSurface{}
		h.mu.Lock()
		h.surfaces[n.ID] = append(h.surfaces[n.ID], s)
		h.callbacks[n.ID] = cb
		h.mu.Unlock()
		return s, nil
	}

	m := NewManager(func() *config.Config { return h.cfg }, factory, nil, h.events, h.feedback, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run()
	}()
	t.Cleanup(func() {
		h.events.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("manager did not shut down")
		}
	})

	return h
}

func (h *harness) deliver(n model.Notification) {
	h.events.Push(event.NewNotification{Notification: n})
}

func (h *harness) surface(t *testing.T, id uint32) *fakeSurface {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		ss := h.surfaces[id]
		h.mu.Unlock()
		if len(ss) > 0 {
			return ss[len(ss)-1]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no surface created for id %d", id)
	return nil
}

func (h *harness) surfaceCount(id uint32) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.surfaces[id])
}

func (h *harness) cb(t *testing.T, id uint32) SurfaceCallbacks {
	t.Helper()
	h.surface(t, id) // wait for creation
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.callbacks[id]
}

func (h *harness) nextFeedback(t *testing.T) event.UIEvent {
	t.Helper()
	select {
	case ev, ok := <-h.feedback.Out():
		require.True(t, ok, "feedback queue closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feedback event")
		return nil
	}
}

func (h *harness) assertNoFeedback(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case ev := <-h.feedback.Out():
		t.Fatalf("unexpected feedback event %#v", ev)
	case <-time.After(within):
	}
}

func withTimeout(n model.Notification, t int32) model.Notification {
	n.ExpireTimeout = t
	return n
}

func popupNote(id uint32, urgency model.Urgency) model.Notification {
	return model.Notification{
		ID:            id,
		AppName:       "test-app",
		Summary:       "hello",
		Hints:         model.Hints{Urgency: urgency, Progress: -1},
		ExpireTimeout: -1,
		Timestamp:     time.Now(),
	}
}

func TestPopupExpiresWithDefaultTimeout(t *testing.T) {
	h := newHarness(t)

	h.deliver(popupNote(1, model.UrgencyNormal))
	s := h.surface(t, 1)

	ev := h.nextFeedback(t)
	closed, ok := ev.(event.NotificationClosed)
	require.True(t, ok)
	assert.Equal(t, uint32(1), closed.ID)
	assert.Equal(t, model.CloseReasonExpired, closed.Reason)
	assert.Equal(t, 1, s.closeCount())
}

func TestZeroTimeoutNeverExpires(t *testing.T) {
	h := newHarness(t)

	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))
	h.surface(t, 1)

	h.assertNoFeedback(t, 200*time.Millisecond)
}

func TestCriticalNeverExpiresByDefault(t *testing.T) {
	h := newHarness(t)

	h.deliver(popupNote(1, model.UrgencyCritical))
	h.surface(t, 1)

	h.assertNoFeedback(t, 200*time.Millisecond)
}

func TestFIFOEvictionAtMaxVisible(t *testing.T) {
	h := newHarness(t)

	for id := uint32(1); id <= 3; id++ {
		h.deliver(withTimeout(popupNote(id, model.UrgencyNormal), 0))
		h.surface(t, id)
	}

	// The fourth popup evicts the oldest.
	h.deliver(withTimeout(popupNote(4, model.UrgencyNormal), 0))
	h.surface(t, 4)

	ev := h.nextFeedback(t)
	closed, ok := ev.(event.NotificationClosed)
	require.True(t, ok)
	assert.Equal(t, uint32(1), closed.ID)
	assert.Equal(t, 1, h.surface(t, 1).closeCount())

	// Survivors shift down; the newcomer takes the last slot.
	assert.Eventually(t, func() bool {
		return h.surface(t, 2).lastPosition() == 0 &&
			h.surface(t, 3).lastPosition() == 1 &&
			h.surface(t, 4).lastPosition() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestServerCloseRequestSendsNoFeedback(t *testing.T) {
	h := newHarness(t)

	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))
	s := h.surface(t, 1)

	h.events.Push(event.CloseRequest{ID: 1, Reason: model.CloseReasonClosed})

	assert.Eventually(t, func() bool { return s.closeCount() == 1 }, time.Second, 10*time.Millisecond)
	h.assertNoFeedback(t, 100*time.Millisecond)
}

func TestDuplicateCloseIsNoOp(t *testing.T) {
	h := newHarness(t)

	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))
	s := h.surface(t, 1)

	h.events.Push(event.CloseRequest{ID: 1, Reason: model.CloseReasonClosed})
	h.events.Push(event.CloseRequest{ID: 1, Reason: model.CloseReasonClosed})
	h.events.Push(event.CloseRequest{ID: 99, Reason: model.CloseReasonClosed})

	assert.Eventually(t, func() bool { return s.closeCount() == 1 }, time.Second, 10*time.Millisecond)
	h.assertNoFeedback(t, 100*time.Millisecond)
}

func TestUserDismiss(t *testing.T) {
	h := newHarness(t)

	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))
	h.cb(t, 1).OnDismiss()

	ev := h.nextFeedback(t)
	closed, ok := ev.(event.NotificationClosed)
	require.True(t, ok)
	assert.Equal(t, uint32(1), closed.ID)
	assert.Equal(t, model.CloseReasonDismissed, closed.Reason)
}

func TestActionPrecedesClose(t *testing.T) {
	h := newHarness(t)

	n := withTimeout(popupNote(1, model.UrgencyNormal), 0)
	n.Actions = []model.Action{{Key: "default", Label: "Open"}}
	h.deliver(n)

	h.cb(t, 1).OnAction("default")

	ev := h.nextFeedback(t)
	invoked, ok := ev.(event.ActionInvoked)
	require.True(t, ok, "expected ActionInvoked first, got %#v", ev)
	assert.Equal(t, "default", invoked.Key)

	ev = h.nextFeedback(t)
	closed, ok := ev.(event.NotificationClosed)
	require.True(t, ok)
	assert.Equal(t, model.CloseReasonDismissed, closed.Reason)
}

func TestResidentSurvivesAction(t *testing.T) {
	h := newHarness(t)

	n := withTimeout(popupNote(1, model.UrgencyNormal), 0)
	n.Hints.Resident = true
	h.deliver(n)

	h.cb(t, 1).OnAction("default")

	ev := h.nextFeedback(t)
	_, ok := ev.(event.ActionInvoked)
	require.True(t, ok)

	// No close follows and the surface stays up.
	h.assertNoFeedback(t, 150*time.Millisecond)
	assert.Equal(t, 0, h.surface(t, 1).closeCount())
}

func TestReplaceKeepsPositionAndResetsTimer(t *testing.T) {
	h := newHarness(t)

	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))
	h.deliver(withTimeout(popupNote(2, model.UrgencyNormal), 0))
	h.surface(t, 2)

	// Replace the first popup in place.
	replacement := withTimeout(popupNote(1, model.UrgencyNormal), 0)
	replacement.Summary = "updated"
	replacement.ReplacesID = 1
	h.deliver(replacement)

	assert.Eventually(t, func() bool { return h.surfaceCount(1) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.surface(t, 1).lastPosition())

	// Replacement emits no close feedback.
	h.assertNoFeedback(t, 100*time.Millisecond)
}

func TestStaleTimerAfterReplaceIgnored(t *testing.T) {
	h := newHarness(t)

	// Armed with the 50ms default timeout.
	h.deliver(popupNote(1, model.UrgencyNormal))
	h.surface(t, 1)

	// Replace with a never-expiring notification before the timer fires.
	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))

	// The original timer fires into a newer generation and must not
	// close anything.
	h.assertNoFeedback(t, 250*time.Millisecond)
	assert.Equal(t, 0, h.surface(t, 1).closeCount())
}

func TestDndEngageClearsNonCritical(t *testing.T) {
	h := newHarness(t)

	h.deliver(withTimeout(popupNote(1, model.UrgencyNormal), 0))
	h.deliver(withTimeout(popupNote(2, model.UrgencyCritical), 0))
	h.surface(t, 2)

	h.events.Push(event.DndChanged{Enabled: true})

	ev := h.nextFeedback(t)
	closed, ok := ev.(event.NotificationClosed)
	require.True(t, ok)
	assert.Equal(t, uint32(1), closed.ID)

	// The critical popup survives.
	h.assertNoFeedback(t, 100*time.Millisecond)
	assert.Equal(t, 0, h.surface(t, 2).closeCount())
}

func TestCloseAll(t *testing.T) {
	h := newHarness(t)

	for id := uint32(1); id <= 3; id++ {
		h.deliver(withTimeout(popupNote(id, model.UrgencyNormal), 0))
		h.surface(t, id)
	}

	h.cb(t, 1).OnCloseAll()

	seen := make(map[uint32]int)
	for i := 0; i < 3; i++ {
		ev := h.nextFeedback(t)
		closed, ok := ev.(event.NotificationClosed)
		require.True(t, ok)
		assert.Equal(t, model.CloseReasonDismissed, closed.Reason)
		seen[closed.ID]++
	}
	assert.Equal(t, map[uint32]int{1: 1, 2: 1, 3: 1}, seen)
}

func TestSoundPlayedOnShow(t *testing.T) {
	played := make(chan model.Notification, 1)
	sounds := soundFunc(func(n model.Notification) { played <- n })

	cfg := config.Default()
	events := event.NewQueue[event.ServerEvent]()
	feedback := event.NewQueue[event.UIEvent]()

	factory := func(n model.Notification, cb SurfaceCallbacks) (Surface, error) {
		return &fakeSurface{}, nil
	}
	m := NewManager(func() *config.Config { return cfg }, factory, sounds, events, feedback, nil)
	go m.Run()
	defer events.Close()

	events.Push(event.NewNotification{Notification: withTimeout(popupNote(1, model.UrgencyNormal), 0)})

	select {
	case n := <-played:
		assert.Equal(t, uint32(1), n.ID)
	case <-time.After(time.Second):
		t.Fatal("sound was not played")
	}
}

type soundFunc func(model.Notification)

func (f soundFunc) Play(n model.Notification) { f(n) }
