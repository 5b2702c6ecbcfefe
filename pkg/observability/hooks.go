package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/firstaid/pkg/domain"
)

// LogHooks logs every lifecycle event at info level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	flow := func(ctx context.Context, e *domain.FlowEvent) {
		logger.InfoContext(ctx, string(e.Type),
			"session_id", e.SessionID,
			"emergency", e.Emergency,
			"node_id", e.NodeID,
			"kind", string(e.Kind))
	}
	return domain.LifecycleHooks{
		OnFlowStart: flow,
		OnNodeEnter: flow,
		OnFlowEnd:   flow,
		OnSession: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, string(e.Type),
				"session_id", e.SessionID,
				"reason", e.Reason)
		},
	}
}

// Merge fans each event out to every set of hooks, in order. Nil callbacks are skipped.
func Merge(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var starts, enters, ends []func(context.Context, *domain.FlowEvent)
	var sessions []func(context.Context, *domain.SessionEvent)
	for _, h := range all {
		if h.OnFlowStart != nil {
			starts = append(starts, h.OnFlowStart)
		}
		if h.OnNodeEnter != nil {
			enters = append(enters, h.OnNodeEnter)
		}
		if h.OnFlowEnd != nil {
			ends = append(ends, h.OnFlowEnd)
		}
		if h.OnSession != nil {
			sessions = append(sessions, h.OnSession)
		}
	}

	return domain.LifecycleHooks{
		OnFlowStart: fanFlow(starts),
		OnNodeEnter: fanFlow(enters),
		OnFlowEnd:   fanFlow(ends),
		OnSession: func(ctx context.Context, e *domain.SessionEvent) {
			for _, fn := range sessions {
				fn(ctx, e)
			}
		},
	}
}

func fanFlow(fns []func(context.Context, *domain.FlowEvent)) func(context.Context, *domain.FlowEvent) {
	return func(ctx context.Context, e *domain.FlowEvent) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
