package chesspresenter

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Presenter 는 만들어진 문구를 출력 대상에 쓴다. AI 대국과 입력 루프가 동시에 쓸 수 있어 잠근다.
type Presenter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out}
}

// Show 는 빈 문구를 건너뛰고 줄바꿈을 붙여 쓴다.
func (p *Presenter) Show(message string) error {
	if p == nil || p.out == nil {
		return nil
	}
	text := strings.TrimRight(message, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintln(p.out, text)
	return err
}

// Prompt 는 줄바꿈 없이 쓴다.
func (p *Presenter) Prompt(prompt string) error {
	if p == nil || p.out == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, prompt)
	return err
}
