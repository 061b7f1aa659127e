package core

import (
	"context"
	"strings"
)

// JobMetricsHook counts queue worker lifecycle events per job id.
type JobMetricsHook struct {
	recorder MetricsRecorder
}

func NewJobMetricsHook(recorder MetricsRecorder) *JobMetricsHook {
	if recorder == nil {
		recorder = NopMetricsRecorder{}
	}
	return &JobMetricsHook{recorder: recorder}
}

func (h *JobMetricsHook) OnStart(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "start", event)
}

func (h *JobMetricsHook) OnSuccess(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "success", event)
	if event.Duration > 0 {
		h.recorder.ObserveHistogram(ctx, "splitpay.job.duration_ms", float64(event.Duration.Milliseconds()), jobTags(event))
	}
}

func (h *JobMetricsHook) OnFailure(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "failure", event)
}

func (h *JobMetricsHook) OnRetry(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "retry", event)
}

func (h *JobMetricsHook) record(ctx context.Context, phase string, event JobWorkerEvent) {
	if h == nil || h.recorder == nil {
		return
	}
	h.recorder.IncCounter(ctx, "splitpay.job."+phase+".total", 1, jobTags(event))
}

func jobTags(event JobWorkerEvent) map[string]string {
	jobID := "unknown"
	if event.Message != nil && strings.TrimSpace(event.Message.JobID) != "" {
		jobID = strings.TrimSpace(event.Message.JobID)
	}
	return map[string]string{"job_id": jobID}
}

