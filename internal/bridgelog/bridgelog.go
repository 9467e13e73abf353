// Package bridgelog builds the zerolog.Logger every session-engine
// component logs through. All output goes to stderr so the JSON-RPC
// channel on stdout stays uncontaminated; a non-empty debug log file path
// additionally tees every line to that file (independent of the debug
// level flag), adapted from the teacher's
// initDebugLogging file-append pattern.
package bridgelog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New builds the root logger for a session. sessionID is stamped onto
// every line so interleaved attach/detach cycles in the same process can
// be told apart in the debug log.
func New(sessionID uuid.UUID, debug bool, debugLogFile string) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	writer := io.Writer(os.Stderr)
	closer := func() error { return nil }

	if debugLogFile != "" {
		file, err := os.OpenFile(debugLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("failed to open debug log file: %w", err)
		}
		header := fmt.Sprintf("=== session %s started at %s ===\n", sessionID, time.Now().Format(time.RFC3339))
		if _, err := file.WriteString(header); err != nil {
			file.Close()
			return zerolog.Logger{}, nil, fmt.Errorf("failed to write debug header: %w", err)
		}
		writer = io.MultiWriter(os.Stderr, file)
		closer = file.Close
	}

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("session_id", sessionID.String()).
		Logger()

	return logger, closer, nil
}
