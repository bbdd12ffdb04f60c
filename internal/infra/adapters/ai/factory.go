package ai

import (
	"fmt"

	"github.com/rs/zerolog"

	"transcript-digest/internal/config"
	"transcript-digest/internal/domain"
	"transcript-digest/internal/domain/ports/adapter"
)

var _ adapter.GeneratorFactory = (*Factory)(nil)

// Factory builds retrying clients for configured model keys.
type Factory struct {
	models map[string]config.ModelConfig
	retry  config.RetryConfig
	log    *zerolog.Logger
}

func NewFactory(cfg *config.Config, log *zerolog.Logger) *Factory {
	return &Factory{models: cfg.Models, retry: cfg.Retry, log: log}
}

func (f *Factory) ForModel(modelKey string, notify adapter.NotifyFunc) (adapter.TextGenerator, error) {
	modelCfg, ok := f.models[modelKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotConfigured, modelKey)
	}
	return NewClient(modelCfg, f.retry, f.log, notify)
}
