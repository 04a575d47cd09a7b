package archive_service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
)

var errKilled = errors.New("signal: killed")

// fakeProcess отдаёт chunks через io.Pipe: без буфера, как настоящий канал,
// но с мгновенной блокировкой писателя.
type fakeProcess struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	kills    atomic.Int32
	waited   atomic.Bool
	produced atomic.Int32

	done     chan struct{}
	doneOnce sync.Once
}

// newFakeProcess пишет chunks с паузой gap. hold=true - после последнего
// фрагмента процесс не выходит, пока его не убьют.
func newFakeProcess(chunks [][]byte, gap time.Duration, hold bool) *fakeProcess {
	pr, pw := io.Pipe()
	p := &fakeProcess{
		pr:   pr,
		pw:   pw,
		done: make(chan struct{}),
	}

	go func() {
		for i, c := range chunks {
			if i > 0 && gap > 0 {
				select {
				case <-time.After(gap):
				case <-p.done:
					return
				}
			}
			if _, err := pw.Write(c); err != nil {
				return
			}
			p.produced.Add(1)
		}
		if hold {
			<-p.done
			return
		}
		p.exit()
	}()

	return p
}

func (p *fakeProcess) exit() {
	p.doneOnce.Do(func() {
		close(p.done)
		_ = p.pw.Close()
	})
}

func (p *fakeProcess) Read(b []byte) (int, error) { return p.pr.Read(b) }

func (p *fakeProcess) Pid() int { return 4242 }

func (p *fakeProcess) Kill() error {
	p.kills.Add(1)
	p.exit()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.done
	p.waited.Store(true)
	if p.kills.Load() > 0 {
		return errKilled
	}
	return nil
}

func (p *fakeProcess) Killed() bool { return p.kills.Load() > 0 }

type fakeLauncher struct {
	proc    infra.Process
	err     error
	starts  atomic.Int32
	started chan struct{}
	once    sync.Once
	dir     string
	name    string
}

func newFakeLauncher(proc infra.Process) *fakeLauncher {
	return &fakeLauncher{proc: proc, started: make(chan struct{})}
}

func (l *fakeLauncher) Start(_ context.Context, dir, name string) (infra.Process, error) {
	l.starts.Add(1)
	l.dir, l.name = dir, name
	l.once.Do(func() { close(l.started) })
	if l.err != nil {
		return nil, l.err
	}
	return l.proc, nil
}

// cancelOnWrite отменяет контекст после n-й записи тела, имитируя отключение клиента.
type cancelOnWrite struct {
	*httptest.ResponseRecorder
	n      int
	writes int
	cancel context.CancelFunc
}

func (c *cancelOnWrite) Write(p []byte) (int, error) {
	n, err := c.ResponseRecorder.Write(p)
	c.writes++
	if c.writes == c.n {
		c.cancel()
	}
	return n, err
}

// stallWriter блокирует запись тела, пока не закрыт release.
type stallWriter struct {
	*httptest.ResponseRecorder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallWriter) Write(p []byte) (int, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.ResponseRecorder.Write(p)
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write: connection reset by peer")
}

var (
	_ http.ResponseWriter = (*cancelOnWrite)(nil)
	_ http.ResponseWriter = (*stallWriter)(nil)
	_ http.ResponseWriter = (*failingWriter)(nil)
)
