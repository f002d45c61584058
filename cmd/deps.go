package cmd

import (
	"context"
	"log"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/activity"
	"github.com/spigell/cv-verifier/internal/ai"
	"github.com/spigell/cv-verifier/internal/ai/anthropic"
	"github.com/spigell/cv-verifier/internal/ai/gemini"
	"github.com/spigell/cv-verifier/internal/config"
	"github.com/spigell/cv-verifier/internal/github"
	"github.com/spigell/cv-verifier/internal/logger"
	"github.com/spigell/cv-verifier/internal/pipeline"
	"github.com/spigell/cv-verifier/internal/purpose"
	"github.com/spigell/cv-verifier/internal/resume"
	"github.com/spigell/cv-verifier/internal/search"
	"github.com/spigell/cv-verifier/internal/secrets"
	"github.com/spigell/cv-verifier/internal/store"
)

// env is everything a command needs. It is built once per process.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newEnv() *env {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	return &env{cfg: cfg, logger: logger}
}

func (e *env) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, e.cfg.Store.Driver, e.cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// newPipeline builds every collaborator of the analysis pipeline.
func (e *env) newPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	cfg := e.cfg

	extractor, err := resume.NewExtractor(resume.ExtractorConfig{
		TitleKeywords: cfg.Extract.TitleKeywords,
		Profiles:      cfg.Extract.Profiles,
	}, e.logger)
	if err != nil {
		return nil, eris.Wrap(err, "building extractor")
	}

	token, err := secrets.Optional(secrets.Source{
		Name:  "github token",
		Value: cfg.GitHub.Token,
		File:  cfg.GitHub.TokenFile,
	})
	if err != nil {
		return nil, err
	}
	if token == "" {
		e.logger.Warn("github token is not configured; using unauthenticated requests",
			zap.String("hint", "set GITHUB_TOKEN_FILE environment variable or the 'github.token-file' key"),
		)
	}

	commits := github.New(github.Config{
		APIURL:        cfg.GitHub.APIURL,
		Token:         token,
		PerPage:       cfg.GitHub.PerPage,
		Timeout:       cfg.GitHub.Timeout,
		RatePerSecond: cfg.GitHub.RatePerSecond,
	}, e.logger)

	searchKey, err := secrets.Optional(secrets.Source{Name: "search api key", File: cfg.Search.APIKeyFile})
	if err != nil {
		return nil, err
	}

	comparator, err := e.newComparator(ctx)
	if err != nil {
		e.logger.Warn("comparator disabled; purpose checks use keyword heuristic", zap.Error(err))
		comparator = nil
	}

	return pipeline.New(pipeline.Deps{
		Extractor: extractor,
		Text:      resume.NewFileText(cfg.Extract.Pdftotext, e.logger),
		Search: search.New(search.Config{
			APIURL:     cfg.Search.APIURL,
			APIKey:     searchKey,
			MaxResults: cfg.Search.MaxResults,
			Timeout:    cfg.Search.Timeout,
		}, e.logger),
		SearchLimit: cfg.Search.MaxResults,
		Activity:    activity.NewVerifier(commits, cfg.GitHub.Concurrency, e.logger),
		Purpose:     purpose.NewMatcher(comparator, e.logger),
		Logger:      e.logger,
	}), nil
}

func (e *env) newComparator(ctx context.Context) (ai.Comparator, error) {
	cfg := e.cfg.AI
	if !cfg.Enabled() {
		return nil, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: cfg.Provider + " api key",
		File: e.cfg.KeyFile(viper.GetViper()),
	})
	if err != nil {
		return nil, eris.Wrap(err, "set ai.api-key-file or the provider API key file variable")
	}

	var generator ai.Generator
	switch cfg.Provider {
	case config.ProviderGemini:
		generator, err = gemini.NewGenerator(ctx, apiKey, cfg.Model)
	case config.ProviderAnthropic:
		generator, err = anthropic.NewGenerator(apiKey, cfg.Model)
	default:
		return nil, eris.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ai.NewPromptComparator(generator, cfg.Provider, cfg.Timeout, cfg.MaxLogLength, e.logger), nil
}
