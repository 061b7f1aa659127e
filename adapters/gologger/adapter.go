package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// ResolveForJob picks the logger for the job pipeline, preferring the
// provider over the direct logger and falling back to nop. The second value
// is the same logger behind go-job's logger contract, for the queue.
func ResolveForJob(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.Logger, job.Logger) {
	_, resolved := glog.Resolve(name, provider, logger)
	return resolved, job.GoLogger(resolved)
}
