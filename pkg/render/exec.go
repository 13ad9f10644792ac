package render

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// stderrTail is how many trailing stderr lines an ExitError keeps.
const stderrTail = 5

// process describes one backend invocation.
type process struct {
	name    string
	args    []string
	dir     string
	timeout time.Duration
	logger  *log.Logger
}

// run starts the process, drains both output streams while it runs, and
// waits for it. A non-zero exit is returned as *ExitError wrapped in a
// RENDER_FAILURE error.
func (p process) run(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Dir = p.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "stderr pipe")
	}

	p.logger.Debug("starting backend", "cmd", p.name, "args", p.args, "dir", p.dir)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(errors.ErrCodeRenderFailure, err, "start %s", p.name)
	}

	tail := &lineTail{max: stderrTail}
	var g errgroup.Group
	g.Go(func() error { return p.drain(stdout, "stdout", nil) })
	g.Go(func() error { return p.drain(stderr, "stderr", tail) })

	// Pipes must be fully read before Wait closes them.
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrap(errors.ErrCodeRenderFailure, ctx.Err(), "%s exceeded render timeout %s", p.name, p.timeout)
		}
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			return errors.Wrap(errors.ErrCodeRenderFailure, &ExitError{
				Command:  p.name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail.String(),
			}, "render")
		}
		return errors.Wrap(errors.ErrCodeRenderFailure, waitErr, "wait %s", p.name)
	}
	if drainErr != nil {
		p.logger.Debug("reading backend output", "cmd", p.name, "err", drainErr)
	}
	return nil
}

// drain logs every line of r and optionally keeps the last few.
func (p process) drain(r io.Reader, stream string, tail *lineTail) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		p.logger.Debug("> "+line, "stream", stream)
		if tail != nil {
			tail.add(line)
		}
	}
	if err := sc.Err(); err != nil {
		// Keep the pipe empty so the process can finish.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("%s: %w", stream, err)
	}
	return nil
}

// lineTail keeps the last max lines written to it.
type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
