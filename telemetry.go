package signal

import "github.com/rs/zerolog"

// log is the engine-wide logger. It is a no-op unless the embedder installs
// one; node lifecycle transitions are traced at debug level.
var log = zerolog.Nop()

// SetLogger installs a logger for engine diagnostics. Call before building
// graphs; the logger is not guarded against concurrent replacement.
func SetLogger(l zerolog.Logger) {
	log = l
}
