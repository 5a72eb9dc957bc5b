package fundtool

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/iov-one/fundtool/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tendermint/tendermint/libs/log"
)

func TestContextLogger(t *testing.T) {
	bg := context.Background()

	newLogger := log.NewTMLogger(os.Stdout)
	ctx := WithLogger(bg, newLogger)
	assert.Equal(t, DefaultLogger, GetLogger(bg))
	assert.Equal(t, newLogger, GetLogger(ctx))

	// changing the info, should modify the logger
	ctx2 := WithLogInfo(ctx, "foo", "bar")
	assert.NotEqual(t, GetLogger(ctx), GetLogger(ctx2))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info")
	assert.NoError(t, err)

	logger.Debug("hidden message")
	logger.Info("visible message", "nonce", 4)
	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden message"))
	assert.True(t, strings.Contains(out, "visible message"))
	assert.True(t, strings.Contains(out, "nonce=4"))

	_, err = NewLogger(&buf, "loud")
	assert.True(t, errors.ErrInput.Is(err))
}
