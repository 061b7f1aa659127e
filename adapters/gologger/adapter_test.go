package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolveForJobPrefersProvider(t *testing.T) {
	direct := &capturingLogger{id: "direct"}
	fromProvider := &capturingLogger{id: "provider"}

	logger, jobLogger := ResolveForJob("splitpay.jobs", &capturingProvider{logger: fromProvider}, direct)
	if got := logger.(*capturingLogger); got.id != "provider" {
		t.Fatalf("expected provider logger, got %q", got.id)
	}

	jobLogger.Info("gojob: message dead-lettered", "job_id", "splitpay.pending.sweep")
	if fromProvider.lastInfo.msg != "gojob: message dead-lettered" {
		t.Fatalf("expected queue log on provider logger, got %q", fromProvider.lastInfo.msg)
	}
	if len(fromProvider.lastInfo.args) != 2 || fromProvider.lastInfo.args[1] != "splitpay.pending.sweep" {
		t.Fatalf("expected queue log fields, got %#v", fromProvider.lastInfo.args)
	}
	if direct.lastInfo.msg != "" {
		t.Fatalf("expected direct logger to stay unused")
	}
}

func TestResolveForJobFallsBack(t *testing.T) {
	direct := &capturingLogger{id: "direct"}
	logger, jobLogger := ResolveForJob("splitpay.jobs", nil, direct)
	if got := logger.(*capturingLogger); got.id != "direct" {
		t.Fatalf("expected direct logger without a provider, got %q", got.id)
	}
	jobLogger.Info("swept")
	if direct.lastInfo.msg != "swept" {
		t.Fatalf("expected queue log on direct logger, got %q", direct.lastInfo.msg)
	}

	logger, jobLogger = ResolveForJob("splitpay.jobs", nil, nil)
	if logger == nil || jobLogger == nil {
		t.Fatalf("expected nop loggers")
	}
	jobLogger.Info("dropped")
}

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{msg: msg, args: append([]any(nil), args...)}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
