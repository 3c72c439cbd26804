package executor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/calcifer-3118/yt-neural-miner/internal/cancel"
	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/stages"
)

// DefaultPollInterval is how often the parent checks the skip token while
// a worker runs.
const DefaultPollInterval = 100 * time.Millisecond

// Request describes one stage computation handed to the worker process.
type Request struct {
	Stage       stages.Name `json:"stage"`
	RunDir      string      `json:"run_dir"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Duration    float64     `json:"duration"`
}

// Response carries the worker's result back over the result pipe.
type Response struct {
	OK       bool   `json:"ok"`
	Artifact []byte `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Options configures an Executor.
type Options struct {
	// SelfPath is the binary to spawn; defaults to the current executable.
	SelfPath string
	// WorkerArgs are the arguments that select worker mode in the child.
	WorkerArgs []string
	// PollInterval overrides the skip-token poll cadence.
	PollInterval time.Duration
}

// Executor runs stage computations in a separate OS process so a hung or
// crashing model load cannot take down the coordinator, and so a skip can
// terminate the stage immediately.
type Executor struct {
	selfPath     string
	workerArgs   []string
	pollInterval time.Duration
	token        *cancel.Token
	reporter     *progress.Reporter
	logger       *slog.Logger
}

// New constructs an executor. token may be nil when cancellation is
// disabled (non-interactive mode).
func New(opts Options, token *cancel.Token, reporter *progress.Reporter, logger *slog.Logger) (*Executor, error) {
	selfPath := opts.SelfPath
	if selfPath == "" {
		path, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("executor: resolve self: %w", err)
		}
		selfPath = path
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		selfPath:     selfPath,
		workerArgs:   opts.WorkerArgs,
		pollInterval: poll,
		token:        token,
		reporter:     reporter,
		logger:       logger,
	}, nil
}

// Run executes one stage in a worker process. A nil response with a nil
// error means the stage was skipped: the worker was terminated, SKIP_ACK
// was emitted, and no artifact exists. Worker-side compute failures and
// crashes come back as a response with OK false, never as an error here.
func (e *Executor) Run(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("executor: marshal request: %w", err)
	}

	resultR, resultW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("executor: result pipe: %w", err)
	}
	defer resultR.Close()

	cmd := exec.Command(e.selfPath, e.workerArgs...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{resultW}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		resultW.Close()
		return nil, fmt.Errorf("executor: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		resultW.Close()
		return nil, fmt.Errorf("executor: start worker: %w", err)
	}
	// The child holds its own copy of the write end.
	resultW.Close()

	drained := make(chan struct{})
	go func() {
		e.forwardProgress(stdout)
		close(drained)
	}()

	resultCh := make(chan *Response, 1)
	go func() {
		resultCh <- decodeResponse(resultR)
	}()

	// Wait closes the stdout pipe, so it must not run until the drain
	// has hit EOF or trailing progress lines are lost.
	waitCh := make(chan error, 1)
	go func() {
		<-drained
		waitCh <- cmd.Wait()
	}()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case waitErr := <-waitCh:
			resp := <-resultCh
			if resp == nil {
				// No response and no skip: the worker died before it
				// could answer. Surface that as a stage failure so it
				// is never mistaken for a cooperative skip.
				detail := "worker exited without a result"
				if waitErr != nil {
					detail = fmt.Sprintf("worker crashed: %v", waitErr)
				}
				e.logger.Warn("worker produced no result",
					logging.String(logging.FieldStage, string(req.Stage)),
					logging.Error(waitErr))
				return &Response{Error: detail}, nil
			}
			return resp, nil

		case <-ticker.C:
			if e.token != nil && e.token.Requested() {
				e.terminate(cmd, waitCh)
				e.reporter.SkipAck()
				e.logger.Info("stage skipped",
					logging.String(logging.FieldStage, string(req.Stage)))
				return nil, nil
			}

		case <-ctx.Done():
			e.terminate(cmd, waitCh)
			return nil, ctx.Err()
		}
	}
}

// forwardProgress copies protocol lines from the worker's stdout onto the
// coordinator's stdout. Anything that is not a protocol line is dropped so
// stdout stays machine-readable.
func (e *Executor) forwardProgress(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		e.reporter.Raw(scanner.Text())
	}
}

func (e *Executor) terminate(cmd *exec.Cmd, waitCh <-chan error) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-waitCh
}

func decodeResponse(r io.Reader) *Response {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil
	}
	return &resp
}
