package fundtool

import (
	"context"
	"io"

	"github.com/iov-one/fundtool/errors"
	"github.com/tendermint/tendermint/libs/log"
)

type contextKey int // local to the fundtool module

const (
	contextKeyLogger contextKey = iota
)

// DefaultLogger is used for all context that have not set anything
// themselves.
var DefaultLogger = log.NewNopLogger()

// WithLogger sets the logger for this context.
func WithLogger(ctx context.Context, logger log.Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// WithLogInfo accepts keyvalue pairs, and returns another context with this
// info attached to the logger.
func WithLogInfo(ctx context.Context, keyvals ...interface{}) context.Context {
	logger := GetLogger(ctx).With(keyvals...)
	return WithLogger(ctx, logger)
}

// GetLogger returns the currently set logger, or DefaultLogger if none was
// set.
func GetLogger(ctx context.Context) log.Logger {
	val, ok := ctx.Value(contextKeyLogger).(log.Logger)
	if !ok {
		return DefaultLogger
	}
	return val
}

// NewLogger returns a key/value logger writing to given output. Only
// messages of given level (debug, info, error, none) or more important are
// written.
func NewLogger(w io.Writer, level string) (log.Logger, error) {
	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return log.NewFilter(log.NewTMLogger(log.NewSyncWriter(w)), opt), nil
}
