package fatfs

import (
	"context"
	"log/slog"
)

// slogLevelTrace sits below slog.LevelDebug, for the sector-by-sector,
// cluster-by-cluster chatter that is too noisy for Debug but occasionally
// indispensable when chasing a corrupted chain. Grounded on soypat-fat's
// fat.go, which defines the same constant for the same reason.
const slogLevelTrace = slog.LevelDebug - 2

func (fs *FS) trace(msg string, args ...any) {
	fs.log.Log(context.Background(), slogLevelTrace, msg, args...)
}

func (fs *FS) debug(msg string, args ...any) {
	fs.log.Debug(msg, args...)
}

func (fs *FS) info(msg string, args ...any) {
	fs.log.Info(msg, args...)
}

func (fs *FS) warn(msg string, args ...any) {
	fs.log.Warn(msg, args...)
}

func (fs *FS) logerror(msg string, args ...any) {
	fs.log.Error(msg, args...)
}
