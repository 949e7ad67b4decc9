package simulation

import (
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/sim/hooking"
	"github.com/sarchlab/chainsim/sim/queueing"
)

// LogHook writes queue growth, queue shrink and service completions to a
// zap logger.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook creates a LogHook that writes to logger.
func NewLogHook(logger *zap.Logger) *LogHook {
	return &LogHook{logger: logger}
}

// Func logs the hook positions it knows and ignores the rest.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case queueing.HookPosChainGrow:
		chain := ctx.Item.(*queueing.Chain)
		h.logger.Info("buffer increased",
			zap.Uint64("chain", chain.Seq()),
			zap.Int("chains", ctx.Detail.(int)))
	case queueing.HookPosChainShrink:
		chain := ctx.Item.(*queueing.Chain)
		h.logger.Info("buffer decreased",
			zap.Uint64("chain", chain.Seq()),
			zap.Int("processes", chain.Len()),
			zap.Int("chains", ctx.Detail.(int)))
	case HookPosServiceEnd:
		p := ctx.Item.(queueing.Process)
		h.logger.Info("serviced",
			zap.String("process", p.ID()),
			zap.Uint64("chain", ctx.Detail.(uint64)),
			zap.Int("duration", p.ServiceDuration()))
	}
}
