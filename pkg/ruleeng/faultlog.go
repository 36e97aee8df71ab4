package ruleeng

import (
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// Evaluation faults (§4.1, §4.3) are logged at Info level, never
// returned as errors. A single misconfigured rule evaluated against a
// large result stream can generate one fault per object; faultLimiter
// caps how many of those log lines actually reach stderr per process,
// mirroring the per-visitor token bucket in the teacher's HTTP rate
// limiter (core/pkg/api/middleware.go), applied here to a single global
// bucket instead of one per caller.
var (
	faultLimiterOnce sync.Once
	faultLimiterInst *rate.Limiter
	faultLoggerInst  *slog.Logger
)

func faultLimiter() *rate.Limiter {
	faultLimiterOnce.Do(func() {
		faultLimiterInst = rate.NewLimiter(rate.Limit(50), 100)
	})
	return faultLimiterInst
}

func faultLogger() *slog.Logger {
	faultLimiterOnce.Do(func() {}) // no-op, keeps init order irrelevant
	if faultLoggerInst == nil {
		faultLoggerInst = slog.Default().With("component", "ruleeng")
	}
	return faultLoggerInst
}

// logFault emits msg at Info level with attrs, dropping the line
// silently once the rate limiter's bucket is empty.
func logFault(msg string, attrs ...any) {
	if faultLimiter().Allow() {
		faultLogger().Info(msg, attrs...)
	}
}
