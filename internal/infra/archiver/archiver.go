package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/sunr3d/zip-streamer/internal/interfaces/infra"
)

// waitDelay ограничивает ожидание закрытия каналов после выхода процесса.
const waitDelay = 5 * time.Second

var _ infra.Launcher = (*zipLauncher)(nil)

type zipLauncher struct {
	binary string
	logger *zap.Logger
}

// New ищет binary в PATH. Запускаемая команда: binary -r - <name>.
func New(log *zap.Logger, binary string) (infra.Launcher, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiverNotFound, err)
	}

	log.Info("архиватор найден", zap.String("path", path))

	return &zipLauncher{
		binary: path,
		logger: log,
	}, nil
}

func (l *zipLauncher) Start(ctx context.Context, dir, name string) (infra.Process, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	cmd := exec.Command(l.binary, "-r", "-", name)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	stderr := &zapio.Writer{
		Log:   l.logger.With(zap.String("archive", name)),
		Level: zap.DebugLevel,
	}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	l.logger.Debug("архиватор запущен",
		zap.String("archive", name),
		zap.Int("pid", cmd.Process.Pid),
	)

	return &process{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *zapio.Writer

	killOnce sync.Once
	killErr  error
	waitOnce sync.Once
	waitErr  error
}

func (p *process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Kill() error {
	p.killOnce.Do(func() {
		err := p.cmd.Process.Kill()
		if err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.killErr = err
		}
	})
	return p.killErr
}

func (p *process) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		_ = p.stderr.Close()
	})
	return p.waitErr
}
