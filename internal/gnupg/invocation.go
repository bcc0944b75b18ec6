package gnupg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/kflux/python-gnupg/internal/gnupglog"
)

// statusFd and passphraseFd are the descriptor numbers the child sees for the
// status channel and the passphrase channel. ExtraFiles entry i becomes
// descriptor 3+i in the child.
const (
	statusFd     = "3"
	passphraseFd = "4"
)

// A channelSet owns the communication channels of one invocation: the
// child's standard input and output, the status pipe, and the optional
// passphrase pipe. It must be released on every exit path.
type channelSet struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	status *os.File // read side of the status pipe
	passW  *os.File // write side of the passphrase pipe, nil if not requested
	stderr *bytes.Buffer
}

// close releases every descriptor still owned by the channel set. Closing a
// descriptor that was already closed on the happy path is not an error.
func (cs *channelSet) close() error {
	var err error
	for _, closer := range []io.Closer{cs.stdin, cs.stdout, cs.status, cs.passW} {
		if closer == nil || (isNilFile(closer)) {
			continue
		}
		if closeErr := closer.Close(); closeErr != nil &&
			!errors.Is(closeErr, os.ErrClosed) && !errors.Is(closeErr, fs.ErrClosed) {
			err = multierr.Append(err, closeErr)
		}
	}
	return err
}

func isNilFile(closer io.Closer) bool {
	f, ok := closer.(*os.File)
	return ok && f == nil
}

// launch starts the gpg binary with the protocol-enabling argument prefix
// followed by args, a minimal environment, and the invocation's channels
// wired up. Ownership of the returned channel set passes to the caller, which
// must guarantee release on every exit path.
func (g *GPG) launch(ctx context.Context, args []string, needsPassphrase bool) (*channelSet, error) {
	statusR, statusW, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	fullArgs := g.commonArgs()
	extraFiles := []*os.File{statusW}

	var passR, passW *os.File
	if needsPassphrase {
		passR, passW, err = os.Pipe()
		if err != nil {
			statusR.Close()
			statusW.Close()
			return nil, err
		}
		fullArgs = append(fullArgs, "--passphrase-fd", passphraseFd)
		if g.capabilities.LoopbackPinentry {
			fullArgs = append(fullArgs, "--pinentry-mode", "loopback")
		}
		extraFiles = append(extraFiles, passR)
	}

	fullArgs = append(fullArgs, g.options...)
	fullArgs = append(fullArgs, args...)

	cmd := exec.CommandContext(ctx, g.binary, fullArgs...)
	cmd.Env = g.childEnv()
	cmd.ExtraFiles = extraFiles
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	closeAll := func() {
		statusR.Close()
		statusW.Close()
		if passR != nil {
			passR.Close()
			passW.Close()
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		closeAll()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeAll()
		return nil, err
	}

	gnupglog.LogCmdStart(g.logger, cmd)
	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, &LaunchError{Binary: g.binary, Err: err}
	}

	// The child holds its own copies of these ends now; keeping them open in
	// the parent would prevent the status channel from ever reaching EOF.
	statusW.Close()
	if passR != nil {
		passR.Close()
	}

	return &channelSet{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		status: statusR,
		passW:  passW,
		stderr: stderr,
	}, nil
}

// supplyPassphrase writes the passphrase followed by a line terminator to the
// dedicated passphrase descriptor and closes the write side immediately. A
// broken pipe means the child already exited or rejected the channel; that is
// logged, not escalated, because the status protocol reports the
// authentication failure separately.
func (g *GPG) supplyPassphrase(logger zerolog.Logger, cs *channelSet, passphrase string) {
	if cs.passW == nil {
		return
	}
	if _, err := io.WriteString(cs.passW, passphrase+"\n"); err != nil {
		logger.Warn().Err(err).Msg("passphrase channel closed early")
	}
	if err := cs.passW.Close(); err != nil {
		logger.Warn().Err(err).Msg("close passphrase channel")
	}
	cs.passW = nil
}

// pump copies all bytes from input to the child's standard input on its own
// goroutine, then closes the input side to signal end-of-input. A broken pipe
// is an expected termination signal: the child may exit early on corrupt
// input, and the failure is observable through its exit status and status
// lines instead.
func pump(logger zerolog.Logger, input io.Reader, stdin io.WriteCloser) {
	if _, err := io.Copy(stdin, input); err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, os.ErrClosed) {
		logger.Debug().Err(err).Msg("write input")
	}
	if err := stdin.Close(); err != nil {
		logger.Debug().Err(err).Msg("close stdin")
	}
}

// run executes one invocation: it launches the child, supplies the
// passphrase if any, pumps input concurrently with draining standard output
// and the status channel, reaps the child, and finalizes result exactly
// once. Status lines are dispatched to result in emission order. run always
// finalizes the result on protocol-level failures; the returned error is
// only structural (launch failure or an unexplained I/O fault).
func (g *GPG) run(ctx context.Context, args []string, input io.Reader, passphrase string, result Result) (err error) {
	logger := g.logger.With().Str("invocation", uuid.NewString()).Logger()

	cs, err := g.launch(ctx, args, passphrase != "")
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := cs.close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("release channel set")
		}
	}()

	if passphrase != "" {
		g.supplyPassphrase(logger, cs, passphrase)
	}

	var wg sync.WaitGroup
	if input != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pump(logger, input, cs.stdin)
		}()
	} else if closeErr := cs.stdin.Close(); closeErr != nil {
		logger.Debug().Err(closeErr).Msg("close stdin")
	}

	var outputErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, copyErr := io.Copy(result, cs.stdout); copyErr != nil && !errors.Is(copyErr, os.ErrClosed) {
			outputErr = copyErr
		}
	}()

	scanner := bufio.NewScanner(cs.status)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		g.dispatchStatusLine(logger, result, scanner.Text())
	}
	scanErr := scanner.Err()

	wg.Wait()

	exitCode := 0
	waitErr := gnupglog.LogCmdWait(logger, cs.cmd)
	if waitErr != nil {
		var exitError *exec.ExitError
		if errors.As(waitErr, &exitError) {
			exitCode = exitError.ExitCode()
		} else if ctx.Err() == nil {
			result.finalize(exitState{code: -1, stderr: cs.stderr.String()})
			return waitErr
		}
	}

	state := exitState{
		code:       exitCode,
		terminated: ctx.Err() != nil,
		stderr:     cs.stderr.String(),
	}
	result.finalize(state)

	// Read faults on the output streams are expected when the child has
	// exited; escalate only if they cannot be explained by normal closure.
	if !state.terminated && waitErr == nil {
		if outputErr != nil {
			return outputErr
		}
		if scanErr != nil {
			return scanErr
		}
	}
	return nil
}
