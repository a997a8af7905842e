package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/germanamz/ares/pkg/engine"
	"github.com/germanamz/ares/pkg/gateway"
	"github.com/germanamz/ares/pkg/logging"
)

// runServe runs the gateway until ctx is cancelled. Log records are copied
// to stderr.
func runServe(ctx context.Context, cfg engine.Config, stderr io.Writer) error {
	if err := cfg.ValidateGateway(); err != nil {
		return err
	}

	log, closer, err := logging.Init(cfg.Log, stderr)
	if err != nil {
		log.Warn("log file unavailable, logging to stderr only", "error", err)
	}
	defer func() { _ = closer.Close() }()

	h, err := newGatewayHandler(ctx, cfg.Gateway, log)
	if err != nil {
		return err
	}

	srv := gateway.NewServer(cfg.Gateway.Addr, h, log)
	log.Info("gateway starting",
		"addr", cfg.Gateway.Addr,
		"upstream", cfg.Gateway.UpstreamURL,
		"model", cfg.Gateway.Model,
		"auth", cfg.Gateway.AuthToken != "",
		"rate_limit_rps", cfg.Gateway.RateLimit.RPS,
	)

	return srv.ListenAndServe(ctx)
}

// newGatewayHandler builds the chat handler and wraps it in the middleware
// stack. A system prompt file is watched for changes until ctx is done.
func newGatewayHandler(ctx context.Context, cfg engine.GatewayConfig, log *slog.Logger) (http.Handler, error) {
	prompt := gateway.NewPrompt(cfg.SystemPrompt)
	if cfg.SystemPromptFile != "" {
		p, err := gateway.LoadPrompt(cfg.SystemPromptFile, log)
		if err != nil {
			return nil, err
		}
		log.Info("system prompt loaded", "path", p.Path())
		if err := p.Watch(ctx); err != nil {
			log.Warn("system prompt hot reload disabled", "path", cfg.SystemPromptFile, "error", err)
		}
		prompt = p
	}

	errs := gateway.ErrorMessages{
		RateLimited:     cfg.Errors.RateLimited,
		PaymentRequired: cfg.Errors.PaymentRequired,
		Upstream:        cfg.Errors.Upstream,
	}

	h := gateway.NewHandler(gateway.Config{
		UpstreamURL: cfg.UpstreamURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Errors:      errs,
	}, prompt, nil, log)

	limitMsg := cfg.Errors.RateLimited
	if limitMsg == "" {
		limitMsg = gateway.DefaultRateLimitedMessage
	}

	chain := gateway.Chain(
		gateway.Recovery(log),
		gateway.RequestID(),
		gateway.Logger(log),
		gateway.CORS(),
		gateway.Auth(cfg.AuthToken),
		gateway.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limitMsg),
	)

	return chain(h), nil
}
