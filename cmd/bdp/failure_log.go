package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var failureLogMu sync.Mutex

// logFailure appends one structured JSON line per failed item so a batch
// run can be inspected and retried afterwards. An empty path disables the
// log.
func logFailure(path, referenceID, target string, err error) error {
	if path == "" {
		return nil
	}

	failureLogMu.Lock()
	defer failureLogMu.Unlock()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return mkErr
		}
	}

	f, openErr := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if openErr != nil {
		return openErr
	}
	defer f.Close()

	logger := zerolog.New(f).With().Timestamp().Logger()
	event := logger.Error().Err(err)
	if referenceID != "" {
		event = event.Str("reference_id", referenceID)
	}
	if target != "" {
		event = event.Str("target", target)
	}
	event.Msg("document processing failed")
	return f.Sync()
}
