package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ PendingStateStore = (*MemoryPendingStateStore)(nil)
	_ MetricsRecorder   = NopMetricsRecorder{}
	_ JobWorkerHook     = (*JobMetricsHook)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
