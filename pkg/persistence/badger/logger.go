package badger

import (
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// badgerLogger routes badger's printf-style logging into a named zap logger.
// Badger's info output is mostly compaction chatter, so it is demoted to debug.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*badgerLogger)(nil)

func newBadgerLogger(logger *zap.Logger) *badgerLogger {
	return &badgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.sugar.Error(trimmed(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.sugar.Warn(trimmed(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.sugar.Debug(trimmed(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.sugar.Debug(trimmed(format, args...))
}

// badger terminates most messages with a newline
func trimmed(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
