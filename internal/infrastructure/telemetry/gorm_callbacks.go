package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

type statementHook struct {
	op     string
	before callbackRegistrar
	after  callbackRegistrar
}

// statementHooks lists the gorm processors the instrumentation wraps. After hooks run
// ahead of otelgorm's own after callback ("otel:after:<verb>"), which ends the statement
// span and restores the parent context.
func statementHooks(db *gorm.DB) []statementHook {
	cb := db.Callback()
	return []statementHook{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before(otelAfter("create"))},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before(otelAfter("select"))},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before(otelAfter("update"))},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before(otelAfter("delete"))},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before(otelAfter("row"))},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before(otelAfter("raw"))},
	}
}

// otelAfter names otelgorm's after callback for verb
func otelAfter(verb string) string {
	return "otel:after:" + verb
}

// registerAround registers before/after callbacks named "{prefix}:before_{op}" and
// "{prefix}:after_{op}" on every statement processor. after receives the op name.
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(*gorm.DB, string)) error {
	for _, h := range statementHooks(db) {
		if before != nil {
			if err := h.before.Register(prefix+":before_"+h.op, before); err != nil {
				return err
			}
		}
		if after != nil {
			op := h.op
			if err := h.after.Register(prefix+":after_"+op, func(db *gorm.DB) { after(db, op) }); err != nil {
				return err
			}
		}
	}
	return nil
}

type statementTimerKey string

// stampStart returns a before-callback storing the statement start time under key
func stampStart(key statementTimerKey) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
}

func elapsedSince(db *gorm.DB, key statementTimerKey) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// sqlOperation maps a gorm processor to the SQL verb used as a metric label
func sqlOperation(db *gorm.DB, op string) string {
	switch op {
	case "create":
		return "INSERT"
	case "query":
		return "SELECT"
	case "update":
		return "UPDATE"
	case "delete":
		return "DELETE"
	}
	return detectOperationType(db.Statement.SQL.String())
}

func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
