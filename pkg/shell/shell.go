package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

type Result struct {
	Stdout []byte
	Stderr []byte
	Code   int
}

// Combined returns stdout and stderr joined, trimmed, for diagnostics.
func (r Result) Combined() string {
	out := append(append([]byte{}, r.Stdout...), r.Stderr...)
	return strings.TrimSpace(string(out))
}

var ErrTimeout = errors.New("command timed out")

// Runner is the exec seam; packages hold one so tests can substitute it.
type Runner func(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	res := Result{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes(), Code: exitCode(err)}
	if cctx.Err() == context.DeadlineExceeded {
		return res, ErrTimeout
	}
	return res, err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
