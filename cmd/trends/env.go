package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/williampepple1/proxy-trends/internal/run"
	"github.com/williampepple1/proxy-trends/internal/store"
)

type env struct {
	Store        store.Store
	Orchestrator *run.Orchestrator
}

// initEnv validates the configuration before opening the store so a
// misconfigured run has no side effects
func initEnv(ctx context.Context) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	o, err := run.New(cfg, st, run.WithLogger(zap.L()))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &env{Store: st, Orchestrator: o}, nil
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}
