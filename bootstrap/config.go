package bootstrap

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"scrub/config"
	"scrub/harness"
	"scrub/sanitize"
)

// InitLogger initializes the zap logger with colored console output.
func InitLogger(level string) (*zap.Logger, *zap.SugaredLogger, error) {
	zapLevel := zapcore.InfoLevel
	if level != "" {
		if err := zapLevel.Set(level); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stdout),
		zapLevel,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig(sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	}

	sugar.Infow("Data paths configuration",
		"data_dir", cfg.GetDataDir(),
		"corpus_dir", cfg.DataPaths.CorpusDir,
		"crashers_dir", cfg.DataPaths.CrashersDir,
		"db_path", cfg.DataPaths.DBPath)

	return cfg, nil
}

// BuildSanitizer constructs the sanitizer from config, loading the policy
// file when one is configured.
func BuildSanitizer(cfg *config.Config, sugar *zap.SugaredLogger) (*sanitize.Sanitizer, error) {
	var policy *sanitize.Policy
	if cfg.Sanitizer.PolicyPath != "" {
		loaded, err := sanitize.LoadPolicy(cfg.Sanitizer.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load redaction policy: %w", err)
		}
		policy = loaded
		sugar.Infow("Redaction policy loaded",
			"path", cfg.Sanitizer.PolicyPath,
			"sensitive_keys", len(policy.SensitiveKeys),
			"patterns", len(policy.Patterns))
	} else {
		sugar.Info("No policy file configured, using built-in redaction policy")
	}

	return sanitize.New(sanitize.Options{
		MaxInputBytes:   cfg.Sanitizer.MaxInputBytes,
		MaxStringLength: cfg.Sanitizer.MaxStringLength,
		MaxDepth:        cfg.Sanitizer.MaxDepth,
		Policy:          policy,
		RegexTimeout:    cfg.RegexTimeout(),
		Logger:          sugar,
	})
}

// BuildHarness constructs the classification harness around the sanitizer,
// attaching the output schema gate when one is configured.
func BuildHarness(cfg *config.Config, sanitizer *sanitize.Sanitizer, sugar *zap.SugaredLogger) (*harness.Harness, error) {
	opts := []harness.Option{harness.WithLogger(sugar)}

	if cfg.API.SchemaPath != "" {
		data, err := os.ReadFile(cfg.API.SchemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read output schema %s: %w", cfg.API.SchemaPath, err)
		}
		schemaOpt, err := harness.WithSchema(data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schemaOpt)
		sugar.Infow("Output schema gate enabled", "path", cfg.API.SchemaPath)
	}

	return harness.New(sanitizer, opts...), nil
}

// EnsureDataDirectories creates the data directory tree before anything
// opens files inside it.
func EnsureDataDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.GetDataDir(),
		cfg.DataPaths.CorpusDir,
		cfg.DataPaths.CrashersDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
