package cancel

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
)

// SkipCommand is the only control command the listener recognizes.
const SkipCommand = "skip"

// Listener reads line-oriented control commands from an external input on
// its own goroutine so the control thread never blocks on stdin. It runs for
// the lifetime of the run; a closed input ends it silently.
type Listener struct {
	reader io.Reader
	token  *Token
	logger *slog.Logger
}

// NewListener constructs a listener bound to the given token.
func NewListener(r io.Reader, token *Token, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Listener{reader: r, token: token, logger: logger}
}

// Start launches the listener goroutine and returns immediately.
func (l *Listener) Start() {
	go l.loop()
}

func (l *Listener) loop() {
	scanner := bufio.NewScanner(l.reader)
	for scanner.Scan() {
		command := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if command != SkipCommand {
			continue
		}
		l.token.Set()
		l.logger.Debug("skip requested", logging.String(logging.FieldEventType, "skip_requested"))
	}
	if err := scanner.Err(); err != nil {
		l.logger.Debug("control input closed", logging.Error(err))
	}
}
