package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	patcher "github.com/printbeast/rngp-patcher"
	"github.com/printbeast/rngp-patcher/credentials"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

const (
	envPrefix      = "PATCHER"
	configFileName = "config"
	configDirName  = "rngp-patcher"

	keyInstallDir = "install_dir"
)

// app holds state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "patcher",
		Short:         "Synchronise a game install with its patch manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			a.logger = newLogger(cmd.ErrOrStderr(), a.v.GetBool("verbose"))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", "", "Config file (default $XDG_CONFIG_HOME/rngp-patcher/config.json)")
	flags.StringP("install-dir", "d", "", "Game install directory")
	flags.StringP("manifest", "m", "manifest.json", "Manifest object key, URL or file:// path")
	flags.String("backend", string(patchtypes.BackendHTTP), "Storage backend: http, s3 or minio")
	flags.String("base-url", "", "Base URL for object keys when no credentials are set")
	flags.String("endpoint-url", "", "Endpoint URL override for the s3 and minio backends")
	flags.Bool("path-style", false, "Use path-style bucket addressing")
	flags.Bool("insecure", false, "Use plain HTTP towards the storage endpoint")
	flags.Duration("timeout", 0, "Per-request timeout (0 uses the default)")
	flags.String("env-file", ".env", "Dotenv file with PATCHER_* credentials")
	flags.String("secret-id", "", "AWS Secrets Manager secret holding the credentials")
	flags.String("secret-region", "", "Region of the Secrets Manager secret")
	flags.String("secret-endpoint", "", "Secrets Manager endpoint override")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("json", false, "Print results as JSON")

	root.AddCommand(
		newCheckCmd(a),
		newSyncCmd(a),
		newVerifyCmd(a),
		newUseCmd(a),
	)

	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.v.SetConfigFile(path)
	} else {
		a.v.AddConfigPath(defaultConfigDir())
		a.v.SetConfigName(configFileName)
		a.v.SetConfigType("json")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config read '%s': %w", a.v.ConfigFileUsed(), err)
		}
	}

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		keyInstallDir:     "install-dir",
		"manifest":        "manifest",
		"backend":         "backend",
		"base_url":        "base-url",
		"endpoint_url":    "endpoint-url",
		"path_style":      "path-style",
		"insecure":        "insecure",
		"timeout":         "timeout",
		"env_file":        "env-file",
		"secret_id":       "secret-id",
		"secret_region":   "secret-region",
		"secret_endpoint": "secret-endpoint",
		"verbose":         "verbose",
		"json":            "json",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.AutomaticEnv()

	return nil
}

// configPath returns the file `use` writes to.
func (a *app) configPath() string {
	if used := a.v.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(defaultConfigDir(), configFileName+".json")
}

func defaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, configDirName)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

// resolveCredentials loads credentials from Secrets Manager when a secret id
// is configured, otherwise from the environment and the dotenv file.
func (a *app) resolveCredentials(cmd *cobra.Command) (credentials.Credentials, bool, error) {
	if id := a.v.GetString("secret_id"); id != "" {
		src, err := credentials.NewSecretsManagerSource(cmd.Context(), id,
			credentials.WithSourceRegion(a.v.GetString("secret_region")),
			credentials.WithSourceEndpoint(a.v.GetString("secret_endpoint")),
			credentials.WithSourceLogger(a.logger))
		if err != nil {
			return credentials.Credentials{}, false, err
		}
		creds, err := src.Load(cmd.Context())
		if err != nil {
			return credentials.Credentials{}, false, err
		}
		return creds, true, nil
	}

	return credentials.FromEnv(a.v.GetString("env_file"))
}

// newClient builds a patcher client from flags, env and the config file.
func (a *app) newClient(cmd *cobra.Command, extra ...patchtypes.Option) (*patcher.Client, error) {
	installDir := a.v.GetString(keyInstallDir)
	if installDir == "" {
		return nil, fmt.Errorf("no install dir configured, pass --install-dir or run 'patcher use <dir>'")
	}

	creds, found, err := a.resolveCredentials(cmd)
	if err != nil {
		return nil, err
	}

	opts := []patchtypes.Option{
		patcher.WithInstallDir(installDir),
		patcher.WithManifestLocation(a.v.GetString("manifest")),
		patcher.WithBackend(patchtypes.Backend(a.v.GetString("backend"))),
		patcher.WithBaseURL(a.v.GetString("base_url")),
		patcher.WithEndpointURL(a.v.GetString("endpoint_url")),
		patcher.WithPathStyle(a.v.GetBool("path_style")),
		patcher.WithInsecure(a.v.GetBool("insecure")),
		patcher.WithLogger(a.logger),
	}
	if timeout := a.v.GetDuration("timeout"); timeout > 0 {
		opts = append(opts, patcher.WithTimeout(timeout))
	}
	if found {
		a.logger.Debug("using credentials", "credentials", creds)
		opts = append(opts, patcher.WithCredentials(creds))
	}
	opts = append(opts, extra...)

	return patcher.New(opts...)
}
