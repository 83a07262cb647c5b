package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/zettelgen/internal/analyze"
	"github.com/ppiankov/zettelgen/internal/llm"
	"github.com/ppiankov/zettelgen/internal/logging"
	"github.com/ppiankov/zettelgen/internal/metrics"
	"github.com/ppiankov/zettelgen/internal/model"
	"github.com/ppiankov/zettelgen/internal/worker"
)

// loadConfig layers defaults, the config file, and ZETTELGEN_* variables.
// Command flags are applied on top by each command.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	return cfg, nil
}

// applyEnv copies the settings most often overridden from the environment
func applyEnv(cfg *model.Config) {
	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}

	setString("llm.provider", &cfg.LLM.Provider)
	setString("llm.model", &cfg.LLM.Model)
	setString("llm.base_url", &cfg.LLM.BaseURL)
	setInt("llm.timeout", &cfg.LLM.Timeout)
	setString("llm.http_proxy", &cfg.LLM.HTTPProxy)
	setString("llm.https_proxy", &cfg.LLM.HTTPSProxy)
	setString("llm.no_proxy", &cfg.LLM.NoProxy)
	setInt("extraction.max_retries", &cfg.Extraction.MaxRetries)
	setString("output.dir", &cfg.Output.Dir)
	setString("output.template", &cfg.Output.TemplatePath)
	setString("output.book_title", &cfg.Output.BookTitle)
	setString("output.author", &cfg.Output.Author)
	setString("cache.dir", &cfg.Cache.Dir)
	setInt("concurrency.workers", &cfg.Concurrency.Workers)

	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logging.Options{
		Verbose: verbose,
		Format:  logFormat,
	})
}

// buildProvider resolves the credential and constructs the backend.
// A missing credential fails here, before any work starts.
func buildProvider(cfg *model.Config) (llm.Provider, error) {
	llmConfig := llm.ConfigFromEnv(llm.ConfigFromModel(cfg.LLM), os.Getenv)

	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		return nil, err
	}

	limiter, err := worker.LimiterFromConfig(cfg.RateLimiting)
	if err != nil {
		return nil, err
	}
	return worker.NewRateLimitedProvider(provider, limiter), nil
}

// newRecorder returns a metrics recorder only when a metrics file was requested
func newRecorder() *metrics.Recorder {
	if metricsFile == "" {
		return nil
	}
	return metrics.New()
}

func writeMetrics(recorder *metrics.Recorder, logger *zap.Logger) {
	if recorder == nil {
		return
	}
	if err := recorder.WriteTextfile(metricsFile); err != nil {
		logger.Warn("failed to write metrics", zap.String("path", metricsFile), zap.Error(err))
		return
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote metrics: %s\n", metricsFile)
	}
}

// describeFailure turns a terminal extraction error into an operator-facing message
func describeFailure(err error) error {
	var exhausted *analyze.ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		return err
	}

	hint := "the model kept returning unusable output"
	if exhausted.Category == analyze.CategoryBackend {
		hint = "the backend could not be reached or rejected the request"
		if llm.IsContentSafety(exhausted.Last) {
			hint = "the backend's safety filter blocked the response"
		}
	}

	return fmt.Errorf("extraction failed after %d attempts, last cause %s (%s): %w",
		exhausted.Attempts, exhausted.Category, hint, exhausted.Last)
}
