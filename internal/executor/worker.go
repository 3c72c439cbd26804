package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// resultFD is where the worker writes its response. File descriptor 3 is
// the first entry of ExtraFiles in the parent.
const resultFD = 3

// ComputeFunc performs one stage computation inside the worker process
// and returns the artifact bytes to hand back to the coordinator.
type ComputeFunc func(ctx context.Context, req Request) ([]byte, error)

// OpenResultPipe returns the inherited result pipe of a worker process.
func OpenResultPipe() *os.File {
	return os.NewFile(resultFD, "result-pipe")
}

// RunWorker is the worker-process entry point. It reads a Request from in,
// runs compute, and writes the Response to out. Compute failures become a
// failed response rather than a worker crash, so the coordinator always
// gets an answer when the worker exits on its own.
func RunWorker(ctx context.Context, in io.Reader, out io.Writer, compute ComputeFunc) error {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		writeResponse(out, &Response{Error: fmt.Sprintf("decode request: %v", err)})
		return fmt.Errorf("worker: decode request: %w", err)
	}

	artifact, err := compute(ctx, req)
	if err != nil {
		writeResponse(out, &Response{Error: err.Error()})
		return nil
	}
	writeResponse(out, &Response{OK: true, Artifact: artifact})
	return nil
}

func writeResponse(w io.Writer, resp *Response) {
	_ = json.NewEncoder(w).Encode(resp)
}
