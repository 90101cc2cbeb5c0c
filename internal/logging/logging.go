// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger to write human-readable output to stderr
// and the full debug stream to the given log file. The file is appended to so
// restarts keep one continuous event history, mirrored to the bucket by the
// worker. The returned closer flushes and closes the file handle.
func Setup(logPath string) (func(), error) {
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()

	return func() { file.Close() }, nil
}

// Component returns a sub-logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
