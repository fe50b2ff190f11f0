package rigctld

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/radio-control/rigcore/internal/cat"
)

// Process is a running rigctld daemon.
type Process interface {
	// Stop terminates the daemon and waits for it to exit.
	Stop() error
}

// Launcher runs the rigctld executable.
type Launcher interface {
	// List returns the output of "rigctld -l".
	List(ctx context.Context) ([]byte, error)

	// Start starts a daemon with args. The daemon must outlive ctx.
	Start(ctx context.Context, args []string) (Process, error)
}

// ExecLauncher runs a rigctld binary found at Path.
type ExecLauncher struct {
	Path string
}

// List runs "rigctld -l".
func (l ExecLauncher) List(ctx context.Context) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.path(), "-l")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s -l: %w: %s", l.path(), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Start starts the daemon. The process is not bound to ctx; only the start
// itself honours cancellation.
func (l ExecLauncher) Start(ctx context.Context, args []string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(l.path(), args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", l.path(), err)
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (l ExecLauncher) path() string {
	if l.Path == "" {
		return "rigctld"
	}
	return l.Path
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) Stop() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// listLine matches one row of "rigctld -l": ID, manufacturer and model, with
// columns separated by at least two spaces.
var listLine = regexp.MustCompile(`^\s*(\d+)\s+(\S.*?)\s{2,}(\S.*?)(?:\s{2,}|$)`)

// ParseList parses the model listing printed by "rigctld -l".
func ParseList(out []byte) ([]cat.RigDescriptor, error) {
	var rigs []cat.RigDescriptor
	for _, line := range strings.Split(string(out), "\n") {
		m := listLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse model id %q: %w", m[1], err)
		}
		rigs = append(rigs, cat.RigDescriptor{
			Manufacturer: strings.TrimSpace(m[2]),
			Model:        strings.TrimSpace(m[3]),
			ID:           cat.ModelID(id),
		})
	}
	if len(rigs) == 0 {
		return nil, fmt.Errorf("rig list: no models found: %w", cat.ErrProtocol)
	}
	return rigs, nil
}
