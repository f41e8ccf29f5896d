package database

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/dataflow/logger"
)

func TestClipSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", clipSQL("SELECT 1"))
	long := strings.Repeat("x", maxLoggedSQL+10)
	got := clipSQL(long)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", maxLoggedSQL)))
	assert.True(t, strings.HasSuffix(got, "(522 bytes)"))
}

func TestQueryLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, &buf)
	ctx := logger.ContextWithRunID(context.Background(), "run-7")
	sql := func() (string, int64) { return "INSERT INTO t VALUES (1)", 1 }

	ql := newQueryLogger(log, time.Hour, gormlogger.Warn)
	ql.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, buf.String(), "fast queries are not logged below info")

	ql.Trace(ctx, time.Now(), sql, errors.New("locked"))
	out := buf.String()
	assert.Contains(t, out, `"message":"query failed"`)
	assert.Contains(t, out, `"error":"locked"`)
	assert.Contains(t, out, `"run_id":"run-7"`)
	assert.Contains(t, out, `"component":"sql"`)

	buf.Reset()
	newQueryLogger(log, time.Hour, gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("x"))
	assert.Empty(t, buf.String())
}
