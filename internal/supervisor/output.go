package supervisor

import (
	"bufio"
	"io"

	"github.com/rs/zerolog"
)

const (
	streamStdout = "stdout"
	streamStderr = "stderr"

	maxLineSize = 1024 * 1024
)

// forwardLines logs every line read from r, in order. stderr lines are
// logged at warn level. Oversized lines end line splitting; the rest of the
// stream is drained so the backend never blocks on a full pipe.
func forwardLines(r io.Reader, log zerolog.Logger, stream string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		ev := log.Info()
		if stream == streamStderr {
			ev = log.Warn()
		}
		ev.Str("stream", stream).Msg(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Str("stream", stream).Msg("Error reading backend output")
		_, _ = io.Copy(io.Discard, r)
	}
}
