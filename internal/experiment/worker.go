package experiment

import (
	"context"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/logger"
)

// HandleRequest returns a consumer callback that decodes a Request, loads
// its datasets and runs it. Requests that can never succeed are marked
// permanent so the consumer moves past them.
func HandleRequest(runner *Runner) kafka.MessageHandler {
	log := logger.WithComponent("experiment-worker")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[Request](value)
		if err != nil {
			return kafka.Permanent(err)
		}
		log.Info("experiment request received", "key", string(key), "experiment", req.Name)

		exp, err := req.Load()
		if err != nil {
			if apperrors.ExitCode(err) == apperrors.ExitUsage {
				return kafka.Permanent(fmt.Errorf("loading experiment %s: %w", req.Name, err))
			}
			return fmt.Errorf("loading experiment %s: %w", req.Name, err)
		}
		result, err := runner.Run(ctx, exp)
		if err != nil {
			// A finished run whose delivery failed is not re-run.
			if result != nil {
				return kafka.Permanent(err)
			}
			if apperrors.ExitCode(err) == apperrors.ExitUsage || apperrors.ExitCode(err) == apperrors.ExitNoData {
				return kafka.Permanent(err)
			}
			return err
		}
		return nil
	}
}
