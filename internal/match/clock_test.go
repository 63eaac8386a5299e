package match

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/domain"
)

// fakeNow 는 테스트가 직접 돌리는 시계.
type fakeNow struct{ t time.Time }

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeNow) Now() time.Time          { return f.t }
func (f *fakeNow) Advance(d time.Duration) { f.t = f.t.Add(d) }

func startedClock(t *testing.T, tc TimeControl, now *fakeNow) *Clock {
	t.Helper()
	c := NewClock(tc, now.Now)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c
}

func TestParseTimeControl(t *testing.T) {
	cases := []struct {
		in   string
		want TimeControl
	}{
		{"none", TimeControl{}},
		{"", TimeControl{}},
		{"bullet", TimeControl{Initial: time.Minute}},
		{"Blitz", TimeControl{Initial: 3 * time.Minute}},
		{"rapid15", TimeControl{Initial: 15 * time.Minute, Increment: 10 * time.Second}},
		{"5+3", TimeControl{Initial: 5 * time.Minute, Increment: 3 * time.Second}},
		{"0.5+0", TimeControl{Initial: 30 * time.Second}},
	}
	for _, tc := range cases {
		got, err := ParseTimeControl(tc.in)
		if err != nil {
			t.Fatalf("ParseTimeControl(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTimeControl(%q) = %+v want %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"fast", "x+1", "5+y", "-1+0", "5+-2"} {
		if _, err := ParseTimeControl(bad); err == nil {
			t.Fatalf("ParseTimeControl(%q) should fail", bad)
		}
	}
	if s := (TimeControl{Initial: 15 * time.Minute, Increment: 10 * time.Second}).String(); s != "15+10" {
		t.Fatalf("String = %q", s)
	}
	if s := (TimeControl{}).String(); s != "none" {
		t.Fatalf("untimed String = %q", s)
	}
}

func TestClockTimeoutOnMove(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: time.Second}, now)
	now.Advance(1500 * time.Millisecond)
	if !c.UpdateTime(domain.White) {
		t.Fatalf("expected flag fall")
	}
	if c.Status() != domain.StatusFinished || c.Result() != domain.BlackWin {
		t.Fatalf("status=%s result=%s", c.Status(), c.Result())
	}
	if c.Stored(domain.White) != 0 {
		t.Fatalf("white remaining = %v", c.Stored(domain.White))
	}
	if !c.EndedAt().Equal(now.Now()) {
		t.Fatalf("end time not recorded")
	}
}

func TestClockExactlyZeroTimesOut(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: time.Second}, now)
	now.Advance(time.Second)
	if !c.UpdateTime(domain.White) || c.Result() != domain.BlackWin {
		t.Fatalf("result = %s", c.Result())
	}
}

func TestClockIncrement(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: time.Minute, Increment: 2 * time.Second}, now)
	now.Advance(5 * time.Second)
	if c.UpdateTime(domain.White) {
		t.Fatalf("unexpected timeout")
	}
	if got := c.Stored(domain.White); got != 57*time.Second {
		t.Fatalf("white = %v want 57s", got)
	}
	now.Advance(time.Second)
	c.UpdateTime(domain.Black)
	if got := c.Stored(domain.Black); got != 61*time.Second {
		t.Fatalf("black = %v want 61s", got)
	}
}

func TestClockRemainingIsLiveProjection(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: 10 * time.Second}, now)
	now.Advance(4 * time.Second)
	if got := c.Remaining(domain.White); got != 6*time.Second {
		t.Fatalf("Remaining = %v want 6s", got)
	}
	if got := c.Stored(domain.White); got != 10*time.Second {
		t.Fatalf("projection mutated state: %v", got)
	}
	now.Advance(time.Minute)
	if got := c.Remaining(domain.White); got != 0 {
		t.Fatalf("Remaining must clamp to 0, got %v", got)
	}
}

func TestClockPauseDoesNotCharge(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: time.Minute}, now)
	now.Advance(2 * time.Second)
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	now.Advance(time.Hour)
	if got := c.Remaining(domain.White); got != time.Minute {
		t.Fatalf("paused Remaining = %v", got)
	}
	if c.UpdateTime(domain.White) || c.Stored(domain.White) != time.Minute {
		t.Fatalf("UpdateTime must be a no-op while paused")
	}
	if err := c.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	now.Advance(3 * time.Second)
	c.UpdateTime(domain.White)
	if got := c.Stored(domain.White); got != 57*time.Second {
		t.Fatalf("white = %v want 57s", got)
	}
}

func TestClockInvalidTransitions(t *testing.T) {
	now := newFakeNow()
	c := NewClock(TimeControl{Initial: time.Minute}, now.Now)
	checks := []struct {
		op string
		fn func() error
	}{
		{"resume", c.Resume},
		{"pause", c.Pause},
		{"finish", func() error { return c.Finish(domain.Draw) }},
	}
	for _, ch := range checks {
		err := ch.fn()
		var te *TransitionError
		if !errors.As(err, &te) || !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s from waiting: err = %v", ch.op, err)
		}
		if te.From != domain.StatusWaiting || te.Op != ch.op {
			t.Fatalf("%s: %+v", ch.op, te)
		}
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double start err = %v", err)
	}
	if err := c.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resume while playing err = %v", err)
	}
	if err := c.Resign(domain.Black); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if c.Result() != domain.WhiteWin {
		t.Fatalf("result = %s", c.Result())
	}
	if err := c.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pause after finish err = %v", err)
	}
}

func TestClockUntimed(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{}, now)
	now.Advance(24 * time.Hour)
	if c.UpdateTime(domain.White) || c.CheckFlag(domain.Black) {
		t.Fatalf("untimed clock must never flag")
	}
	if c.Status() != domain.StatusPlaying {
		t.Fatalf("status = %s", c.Status())
	}
}

func TestClockCheckFlag(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: 10 * time.Second}, now)
	now.Advance(9 * time.Second)
	if c.CheckFlag(domain.White) {
		t.Fatalf("flag fell early")
	}
	now.Advance(time.Second)
	if !c.CheckFlag(domain.White) {
		t.Fatalf("flag should fall")
	}
	if c.Result() != domain.BlackWin || c.Stored(domain.White) != 0 {
		t.Fatalf("result=%s white=%v", c.Result(), c.Stored(domain.White))
	}
}

func TestClockTimeoutAndElapsed(t *testing.T) {
	now := newFakeNow()
	c := NewClock(TimeControl{Initial: time.Minute}, now.Now)
	if c.Elapsed() != 0 {
		t.Fatalf("elapsed before start = %v", c.Elapsed())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	now.Advance(2500 * time.Millisecond)
	if got := c.Elapsed(); got != 2*time.Second {
		t.Fatalf("elapsed = %v want 2s", got)
	}
	if err := c.Timeout(domain.Black); err != nil {
		t.Fatalf("Timeout: %v", err)
	}
	now.Advance(time.Minute)
	if got := c.Elapsed(); got != 2*time.Second {
		t.Fatalf("elapsed after finish = %v want 2s", got)
	}
	if c.Result() != domain.WhiteWin || c.Stored(domain.Black) != 0 {
		t.Fatalf("result=%s black=%v", c.Result(), c.Stored(domain.Black))
	}
}

func TestClockSnapshotRoundTrip(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: 3 * time.Minute, Increment: 2 * time.Second}, now)
	now.Advance(4 * time.Second)
	c.UpdateTime(domain.White)
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var st ClockState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r, err := RestoreClock(st, now.Now)
	if err != nil {
		t.Fatalf("RestoreClock: %v", err)
	}
	if r.Status() != domain.StatusPaused || r.TimeControl() != c.TimeControl() {
		t.Fatalf("restored %+v", r.Snapshot())
	}
	if r.Stored(domain.White) != 178*time.Second || r.Stored(domain.Black) != 3*time.Minute {
		t.Fatalf("restored times white=%v black=%v", r.Stored(domain.White), r.Stored(domain.Black))
	}
	if !r.StartedAt().Equal(c.StartedAt()) {
		t.Fatalf("start time lost")
	}
	if _, err := RestoreClock(ClockState{Status: "BROKEN"}, now.Now); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if _, err := RestoreClock(ClockState{Status: domain.StatusFinished}, now.Now); err == nil {
		t.Fatalf("expected error for finished state without result")
	}
	if _, err := RestoreClock(ClockState{Status: domain.StatusAborted, Result: domain.Draw}, now.Now); err == nil {
		t.Fatalf("expected error for aborted state with result")
	}
}

func TestClockSnapshotKeepsSubMillisecond(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: time.Second}, now)
	now.Advance(999400 * time.Microsecond)
	if c.UpdateTime(domain.White) {
		t.Fatalf("flag fell with time left")
	}
	if got := c.Stored(domain.White); got != 600*time.Microsecond {
		t.Fatalf("stored = %v", got)
	}
	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var st ClockState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r, err := RestoreClock(st, now.Now)
	if err != nil {
		t.Fatalf("RestoreClock: %v", err)
	}
	if r.Stored(domain.White) != 600*time.Microsecond || r.Status() != domain.StatusPlaying {
		t.Fatalf("restored white=%v status=%s", r.Stored(domain.White), r.Status())
	}
	if r.CheckFlag(domain.White) {
		t.Fatalf("restored clock must not flag with time left")
	}
}

func TestClockFinishRequiresResult(t *testing.T) {
	for _, res := range []domain.Result{domain.NoResult, domain.Result("garbage")} {
		now := newFakeNow()
		c := startedClock(t, TimeControl{Initial: time.Minute}, now)
		if err := c.Finish(res); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Finish(%q) err = %v", res, err)
		}
		if c.Status() != domain.StatusPlaying || c.Result() != domain.NoResult {
			t.Fatalf("Finish(%q) changed state: status=%s result=%q", res, c.Status(), c.Result())
		}
	}
}

func TestClockAbort(t *testing.T) {
	now := newFakeNow()
	c := startedClock(t, TimeControl{Initial: time.Minute}, now)
	now.Advance(3 * time.Second)
	if err := c.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if c.Status() != domain.StatusAborted || c.Finished() || !c.Closed() || c.Result() != domain.NoResult {
		t.Fatalf("status=%s result=%q", c.Status(), c.Result())
	}
	if got := c.Elapsed(); got != 3*time.Second {
		t.Fatalf("elapsed = %v", got)
	}
	if err := c.Abort(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double abort err = %v", err)
	}
	if err := c.Finish(domain.Draw); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("finish after abort err = %v", err)
	}

	done := startedClock(t, TimeControl{Initial: time.Minute}, now)
	if err := done.Resign(domain.White); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if err := done.Abort(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("abort after finish err = %v", err)
	}
	if done.Result() != domain.BlackWin {
		t.Fatalf("result = %s", done.Result())
	}
}
