package cmdlog

import (
	"go.uber.org/zap"

	"snsapi/internal/metrics"
)

// Run executes f as the CLI command cmd, counting runs and failures.
func Run(log *zap.Logger, cmd string, f func() error) error {
	if log == nil {
		log = zap.NewNop()
	}
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		log.Error(cmd+"_error", zap.Error(err))
	} else {
		log.Info(cmd + "_ok")
	}
	return err
}
