package decompress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/farcloser/primordium/fault"
)

const (
	zstdBinary = "zstd"
	xzBinary   = "xz"
	// Multi-gigabyte traces on slow disks take a while.
	timeout = 30 * time.Minute
)

// Decompressor resolves an external decompressor on PATH. A missing one is a missing requirement,
// not a corrupt log.
func Decompressor(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", fault.ErrMissingRequirements, name, err)
	}

	return path, nil
}

// external streams file through "<name> -d -c".
func external(ctx context.Context, name string, file *os.File) (io.ReadCloser, error) {
	slog.Debug("decompress.external", "binary", name, "stage", "start")

	binPath, err := Decompressor(name)
	if err != nil {
		_ = file.Close()

		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	cmd := exec.CommandContext(ctx, binPath, "-d", "-c")
	cmd.Stdin = file

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		_ = file.Close()

		return nil, fmt.Errorf("%w: %w", fault.ErrCommandFailure, err)
	}

	if err = cmd.Start(); err != nil {
		cancel()
		_ = file.Close()

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, name, err)
	}

	return &commandReader{
		name:   name,
		stdout: stdout,
		cmd:    cmd,
		ctx:    ctx,
		cancel: cancel,
		stderr: stderr,
		file:   file,
	}, nil
}

type commandReader struct {
	name   string
	stdout io.ReadCloser
	cmd    *exec.Cmd
	ctx    context.Context //nolint:containedctx // bound to the child process lifetime
	cancel context.CancelFunc
	stderr *bytes.Buffer
	file   *os.File
	eof    bool
	closed bool
}

// Read surfaces a failed or timed-out decompressor at end of stream, so truncated output is never
// mistaken for a complete log.
func (c *commandReader) Read(p []byte) (int, error) {
	n, err := c.stdout.Read(p)
	if !errors.Is(err, io.EOF) {
		return n, err //nolint:wrapcheck // passthrough of the pipe error
	}

	c.eof = true

	if waitErr := c.wait(); waitErr != nil {
		return n, waitErr
	}

	return n, io.EOF
}

func (c *commandReader) wait() error {
	if c.closed {
		return nil
	}

	c.closed = true

	defer c.cancel()
	defer c.file.Close()

	if err := c.cmd.Wait(); err != nil {
		if errors.Is(c.ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("decompress.external", "binary", c.name, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("decompress.external", "binary", c.name, "stage", "error")

		return fmt.Errorf("%w: %s: %s: %w", fault.ErrCommandFailure, c.name, c.stderr.String(), err)
	}

	slog.Debug("decompress.external", "binary", c.name, "stage", "done")

	return nil
}

// Close stops the decompressor. Closing before end of stream is not an error.
func (c *commandReader) Close() error {
	if c.closed {
		return nil
	}

	if !c.eof {
		c.cancel()
		_ = c.cmd.Wait()
		c.closed = true

		return c.file.Close() //nolint:wrapcheck // plain close
	}

	return c.wait()
}
