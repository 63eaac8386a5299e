package match

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/domain"
)

var ErrInvalidTransition = errors.New("invalid clock transition")

// TransitionError 는 현재 상태에서 허용되지 않는 조작.
type TransitionError struct {
	From domain.MatchStatus
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// TimeControl 은 초기 시간과 수당 증가분. Initial <= 0 이면 무제한.
type TimeControl struct {
	Initial   time.Duration
	Increment time.Duration
}

func (tc TimeControl) Untimed() bool { return tc.Initial <= 0 }

func (tc TimeControl) String() string {
	if tc.Untimed() {
		return "none"
	}
	return strconv.FormatFloat(tc.Initial.Minutes(), 'f', -1, 64) + "+" + strconv.FormatFloat(tc.Increment.Seconds(), 'f', -1, 64)
}

var namedTimeControls = map[string]TimeControl{
	"bullet":    {Initial: time.Minute},
	"blitz":     {Initial: 3 * time.Minute},
	"blitz5":    {Initial: 5 * time.Minute},
	"rapid":     {Initial: 10 * time.Minute},
	"rapid15":   {Initial: 15 * time.Minute, Increment: 10 * time.Second},
	"classical": {Initial: 30 * time.Minute},
}

// ParseTimeControl 은 "none", "M+S"(분+초), 프리셋 이름을 받는다.
func ParseTimeControl(s string) (TimeControl, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "none", "untimed", "-":
		return TimeControl{}, nil
	}
	if tc, ok := namedTimeControls[v]; ok {
		return tc, nil
	}
	mins, incs, ok := strings.Cut(v, "+")
	if !ok {
		return TimeControl{}, fmt.Errorf("time control %q: want M+S or preset", s)
	}
	m, err := strconv.ParseFloat(strings.TrimSpace(mins), 64)
	if err != nil || m < 0 {
		return TimeControl{}, fmt.Errorf("time control %q: bad minutes", s)
	}
	inc, err := strconv.ParseFloat(strings.TrimSpace(incs), 64)
	if err != nil || inc < 0 {
		return TimeControl{}, fmt.Errorf("time control %q: bad increment", s)
	}
	return TimeControl{
		Initial:   time.Duration(m * float64(time.Minute)),
		Increment: time.Duration(inc * float64(time.Second)),
	}, nil
}

// Clock 은 대국 상태 머신과 양측 남은 시간.
// Waiting -> Playing -> {Paused -> Playing, Finished}.
type Clock struct {
	now func() time.Time
	tc  TimeControl

	status domain.MatchStatus
	result domain.Result

	white time.Duration
	black time.Duration

	startTime    time.Time
	lastMoveTime time.Time
	endTime      time.Time
}

// NewClock 은 now 가 nil 이면 time.Now 를 쓴다.
func NewClock(tc TimeControl, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{
		now:    now,
		tc:     tc,
		status: domain.StatusWaiting,
		white:  tc.Initial,
		black:  tc.Initial,
	}
}

func (c *Clock) TimeControl() TimeControl   { return c.tc }
func (c *Clock) Status() domain.MatchStatus { return c.status }
func (c *Clock) Result() domain.Result      { return c.result }
func (c *Clock) StartedAt() time.Time       { return c.startTime }
func (c *Clock) EndedAt() time.Time         { return c.endTime }
func (c *Clock) Finished() bool             { return c.status == domain.StatusFinished }
func (c *Clock) Closed() bool               { return c.status.Closed() }

// Stored 는 마지막 수 시점에 확정된 남은 시간.
func (c *Clock) Stored(color domain.Color) time.Duration { return *c.slot(color) }

func (c *Clock) slot(color domain.Color) *time.Duration {
	if color == domain.Black {
		return &c.black
	}
	return &c.white
}

func (c *Clock) Start() error {
	if c.status != domain.StatusWaiting {
		return &TransitionError{From: c.status, Op: "start"}
	}
	t := c.now()
	c.status = domain.StatusPlaying
	c.startTime = t
	c.lastMoveTime = t
	return nil
}

func (c *Clock) Pause() error {
	if c.status != domain.StatusPlaying {
		return &TransitionError{From: c.status, Op: "pause"}
	}
	c.status = domain.StatusPaused
	return nil
}

// Resume 은 일시정지 동안의 시간을 차감하지 않도록 기준 시각을 다시 잡는다.
func (c *Clock) Resume() error {
	if c.status != domain.StatusPaused {
		return &TransitionError{From: c.status, Op: "resume"}
	}
	c.status = domain.StatusPlaying
	c.lastMoveTime = c.now()
	return nil
}

// UpdateTime 은 수를 둔 color 의 사고 시간을 차감하고 증가분을 더한다.
// Playing 이 아니면 아무것도 하지 않는다. 시간이 0 이 되면 true.
func (c *Clock) UpdateTime(color domain.Color) bool {
	if c.status != domain.StatusPlaying {
		return false
	}
	t := c.now()
	elapsed := t.Sub(c.lastMoveTime)
	c.lastMoveTime = t
	if c.tc.Untimed() {
		return false
	}
	rem := c.slot(color)
	*rem = max(0, *rem-elapsed+c.tc.Increment)
	if *rem == 0 {
		c.finishAt(t, domain.WinFor(color.Opponent()))
		return true
	}
	return false
}

// Remaining 은 저장값을 바꾸지 않는 실시간 추정치.
func (c *Clock) Remaining(color domain.Color) time.Duration {
	stored := *c.slot(color)
	if c.status != domain.StatusPlaying || c.tc.Untimed() || c.lastMoveTime.IsZero() {
		return stored
	}
	return max(0, stored-c.now().Sub(c.lastMoveTime))
}

// CheckFlag 는 수를 두지 않고도 color 의 깃발이 떨어졌는지 본다.
func (c *Clock) CheckFlag(color domain.Color) bool {
	if c.status != domain.StatusPlaying || c.tc.Untimed() {
		return false
	}
	if c.Remaining(color) > 0 {
		return false
	}
	*c.slot(color) = 0
	c.finishAt(c.now(), domain.WinFor(color.Opponent()))
	return true
}

// Finish 는 승패나 무승부로만 끝낸다. 결과 없이 닫으려면 Abort.
func (c *Clock) Finish(result domain.Result) error {
	if c.status != domain.StatusPlaying && c.status != domain.StatusPaused {
		return &TransitionError{From: c.status, Op: "finish"}
	}
	if !result.Final() {
		return &TransitionError{From: c.status, Op: "finish " + result.PGN()}
	}
	c.finishAt(c.now(), result)
	return nil
}

// Abort 는 결과 없이 대국을 닫는다. 이미 닫힌 대국에는 쓸 수 없다.
func (c *Clock) Abort() error {
	if c.status.Closed() {
		return &TransitionError{From: c.status, Op: "abort"}
	}
	c.status = domain.StatusAborted
	c.result = domain.NoResult
	c.endTime = c.now()
	return nil
}

func (c *Clock) Resign(color domain.Color) error {
	return c.Finish(domain.WinFor(color.Opponent()))
}

func (c *Clock) Timeout(color domain.Color) error {
	if err := c.Finish(domain.WinFor(color.Opponent())); err != nil {
		return err
	}
	*c.slot(color) = 0
	return nil
}

func (c *Clock) finishAt(t time.Time, result domain.Result) {
	c.status = domain.StatusFinished
	c.result = result
	c.endTime = t
}

// Elapsed 는 시작부터 종료(또는 현재)까지의 초 단위 경과.
func (c *Clock) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	end := c.endTime
	if end.IsZero() {
		end = c.now()
	}
	return end.Sub(c.startTime).Truncate(time.Second)
}

// ClockState 는 저장용 직렬화 형태. 시간은 나노초 단위.
type ClockState struct {
	TimeControl string             `json:"time_control"`
	InitialNs   int64              `json:"initial_ns"`
	IncrementNs int64              `json:"increment_ns"`
	Status      domain.MatchStatus `json:"status"`
	Result      domain.Result      `json:"result,omitempty"`
	WhiteNs     int64              `json:"white_ns"`
	BlackNs     int64              `json:"black_ns"`
	StartedAt   time.Time          `json:"started_at,omitzero"`
	LastMoveAt  time.Time          `json:"last_move_at,omitzero"`
	EndedAt     time.Time          `json:"ended_at,omitzero"`
}

func (c *Clock) Snapshot() ClockState {
	return ClockState{
		TimeControl: c.tc.String(),
		InitialNs:   int64(c.tc.Initial),
		IncrementNs: int64(c.tc.Increment),
		Status:      c.status,
		Result:      c.result,
		WhiteNs:     int64(c.white),
		BlackNs:     int64(c.black),
		StartedAt:   c.startTime,
		LastMoveAt:  c.lastMoveTime,
		EndedAt:     c.endTime,
	}
}

func RestoreClock(st ClockState, now func() time.Time) (*Clock, error) {
	switch st.Status {
	case domain.StatusWaiting, domain.StatusPlaying, domain.StatusPaused, domain.StatusAborted:
		if st.Result != domain.NoResult {
			return nil, fmt.Errorf("restore clock: result %q while %s", st.Result, st.Status)
		}
	case domain.StatusFinished:
		if !st.Result.Final() {
			return nil, fmt.Errorf("restore clock: finished without result")
		}
	default:
		return nil, fmt.Errorf("restore clock: unknown status %q", st.Status)
	}
	if st.WhiteNs < 0 || st.BlackNs < 0 {
		return nil, fmt.Errorf("restore clock: negative remaining time")
	}
	c := NewClock(TimeControl{
		Initial:   time.Duration(st.InitialNs),
		Increment: time.Duration(st.IncrementNs),
	}, now)
	c.status = st.Status
	c.result = st.Result
	c.white = time.Duration(st.WhiteNs)
	c.black = time.Duration(st.BlackNs)
	c.startTime = st.StartedAt
	c.lastMoveTime = st.LastMoveAt
	c.endTime = st.EndedAt
	return c, nil
}
