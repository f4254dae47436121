package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestClassifyStatement(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`INSERT INTO "ledger_entries" ("id","business_day") VALUES (1,'2024-07-01') ON CONFLICT DO NOTHING`, "INSERT", "ledger_entries"},
		{`SELECT * FROM "shift_closures" WHERE business_day = '2024-07-01' LIMIT 1`, "SELECT", "shift_closures"},
		{`UPDATE seller_motivation_state SET streak_days = 2`, "UPDATE", "seller_motivation_state"},
		{`DELETE FROM public.presales WHERE id = 3`, "DELETE", "presales"},
		{`WITH x AS (SELECT 1) SELECT * FROM x`, "SELECT", "x"},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := classifyStatement(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerAuditsDayScopedWrites(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(DefaultGormLoggerConfig())
	ctx := WithDay(context.Background(), "2024-07-01")

	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `INSERT INTO "ledger_entries" ("id") VALUES (1)`, 1
	}, nil)
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `INSERT INTO "ledger_entries" ("id") VALUES (1) ON CONFLICT DO NOTHING`, 0
	}, nil)
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `SELECT * FROM "ledger_entries"`, 4
	}, nil)
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return `INSERT INTO "staff" ("id") VALUES (1)`, 1
	}, nil)

	entries := logs.FilterMessage("db.write").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ledger_entries", fields["table"])
	assert.Equal(t, "2024-07-01", fields["business_day"])
}

func TestGormLoggerIgnoresRecordNotFound(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Error})
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "shift_closures"`, 0
	}, gormlogger.ErrRecordNotFound)

	assert.Zero(t, logs.Len())
}
