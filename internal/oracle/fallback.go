package oracle

import (
	"context"
	"errors"

	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/metrics"
	"copy-trade-bot-go/internal/models"
	"copy-trade-bot-go/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FallbackDecider consults a remote decider and recovers every failure with
// the local table. Its Decide never returns an error.
type FallbackDecider struct {
	remote    Decider
	simulated *SimulatedDecider
	logger    *zap.Logger
}

var _ Decider = (*FallbackDecider)(nil)

// NewFallbackDecider wraps remote. A nil remote always uses the simulated table.
func NewFallbackDecider(remote Decider, simulated *SimulatedDecider, logger *zap.Logger) *FallbackDecider {
	if simulated == nil {
		simulated = NewSimulatedDecider()
	}
	return &FallbackDecider{remote: remote, simulated: simulated, logger: logger}
}

// NewDecider builds the decider the engine uses from configuration. Without
// an api key the remote model is never called.
func NewDecider(cfg *config.Oracle, maxReasoning int, logger *zap.Logger) (*FallbackDecider, error) {
	if cfg.ApiKey == "" {
		logger.Info("No oracle api key configured, using simulated decisions")
		return NewFallbackDecider(nil, nil, logger), nil
	}
	remote, err := NewGeminiDecider(cfg, maxReasoning, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Using remote decision oracle", zap.String("model", cfg.Model))
	return NewFallbackDecider(remote, nil, logger), nil
}

// Decide returns the remote decision, or a table decision when the remote
// is absent or fails.
func (f *FallbackDecider) Decide(ctx context.Context, market models.Market, trader *models.TraderProfile) (models.TradeDecision, error) {
	ctx, span := trace.StartSpan(ctx, "oracle-decide")
	defer span.End()
	span.SetAttributes(attribute.String("market.id", market.ID))

	if f.remote == nil {
		metrics.OracleRequestsTotal.WithLabelValues("simulated").Inc()
		return f.simulated.Decide(ctx, market, trader)
	}

	decision, err := f.remote.Decide(ctx, market, trader)
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		metrics.OracleRequestsTotal.WithLabelValues("simulated").Inc()
		return f.simulated.Decide(ctx, market, trader)
	case err != nil:
		span.RecordError(err)
		metrics.OracleRequestsTotal.WithLabelValues("fallback").Inc()
		metrics.OracleFallbacks.Inc()
		f.logger.Warn("Decision oracle failed, using fallback",
			zap.String("market", market.ID),
			zap.Error(err),
		)
		return f.simulated.Fallback(), nil
	case !decision.Decision.Valid():
		metrics.OracleRequestsTotal.WithLabelValues("fallback").Inc()
		metrics.OracleFallbacks.Inc()
		f.logger.Warn("Decision oracle returned unknown decision, using fallback",
			zap.String("market", market.ID),
			zap.String("decision", string(decision.Decision)),
		)
		return f.simulated.Fallback(), nil
	}

	metrics.OracleRequestsTotal.WithLabelValues("remote").Inc()
	span.SetAttributes(attribute.String("decision", string(decision.Decision)))
	return decision, nil
}
