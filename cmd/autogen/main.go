package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/autogenjobs/autogen/internal/log"
	"github.com/autogenjobs/autogen/internal/model"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFileName = "autogen.yaml"

var (
	userConfigPath string // /default/config/path/autogen on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config
	logOutput      io.WriteCloser

	// flags and environment variables (AUTOGEN_*) overriding the config file
	overrides = viper.New()

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagProject        string // value of --project flag

	flagWait     bool          // submit --wait
	flagTimeout  time.Duration // submit, wait --timeout
	flagParallel int           // wait --parallel
	flagLimit    int           // history --limit
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		d = "."
	}
	userConfigPath = filepath.Join(d, "autogen")

	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is "+configFileName+" in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "project root, the jobs directory is resolved against it")

	submitCmd.Flags().BoolVar(&flagWait, "wait", false, "wait for the result of the submitted job")
	submitCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "how long to wait for a result, default is timeout from config")
	waitCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "how long to wait for each result, default is timeout from config")
	waitCmd.Flags().IntVar(&flagParallel, "parallel", 4, "maximum number of jobs waited for at once")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of entries, 0 means all")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initAutogen

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if logOutput != nil {
		defer func() {
			_ = logOutput.Close()
		}()
	}
	if err != nil {
		slog.Error("autogen failed", "err", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "autogen",
	Short:        "Submits jobs to the editor job queue and collects their results",
	SilenceUsage: true,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "status prints the job queue directories and the number of jobs in them",
	Args:  cobra.NoArgs,
	RunE:  doStatus,
}

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "submit places a job file (JSON or YAML) into the inbox",
	Args:  cobra.ExactArgs(1),
	RunE:  doSubmit,
}

var checkCmd = &cobra.Command{
	Use:   "check <jobId>",
	Short: "check prints the result of a job if there is one",
	Args:  cobra.ExactArgs(1),
	RunE:  doCheck,
}

var waitCmd = &cobra.Command{
	Use:   "wait <jobId>...",
	Short: "wait waits for results of submitted jobs, one JSON line per job",
	Args:  cobra.MinimumNArgs(1),
	RunE:  doWait,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "history lists jobs recorded in the journal",
	Args:  cobra.NoArgs,
	RunE:  doHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of an autogen",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		info, ok := debug.ReadBuildInfo()
		if !ok {
			_, _ = fmt.Fprintln(out, "autogen: version info not available")
			return
		}

		if configPath != "" {
			_, _ = fmt.Fprintf(out, "config:  %s\n", configPath)
		}
		_, _ = fmt.Fprintf(out, "autogen: %s\n", info.Main.Version)
		_, _ = fmt.Fprintf(out, "go:      %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				_, _ = fmt.Fprintf(out, "commit:  %s\n", s.Value)
			case "vcs.time":
				_, _ = fmt.Fprintf(out, "date:    %s\n", s.Value)
			case "vcs.modified":
				_, _ = fmt.Fprintf(out, "dirty:   %s\n", s.Value)
			}
		}
		_, _ = fmt.Fprintln(out)
	},
}

func initAutogen(cmd *cobra.Command, _ []string) error {
	configPath = ""
	if envConfig, ok := os.LookupEnv("AUTOGEN_CONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, configFileName)
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, configFileName)
		if err := storeConfig(configPath, config); err != nil {
			slog.Warn("can't store default configuration", "path", configPath, "err", err)
			configPath = ""
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		cfg, err := model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error("invalid configuration", d.Attr("detail"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
		config = *cfg
	}

	if err := applyOverrides(cmd); err != nil {
		return err
	}
	if _, err := config.Timing(); err != nil {
		return err
	}

	// initialize logging
	if logOutput != nil {
		_ = logOutput.Close()
	}
	logOutput = log.Output(config.Log)
	slog.SetDefault(log.New(logOutput, config.Verbose))

	slog.Debug("autogen run", "configPath", configPath)
	slog.Debug("autogen run", "config", config)
	return nil
}

// applyOverrides puts --project, --verbose and the AUTOGEN_<KEY> environment
// variables over the values from the config file.
func applyOverrides(cmd *cobra.Command) error {
	overrides.SetEnvPrefix("AUTOGEN")
	overrides.AutomaticEnv()
	if err := overrides.BindPFlag("project", cmd.Flags().Lookup("project")); err != nil {
		return err
	}
	if err := overrides.BindPFlag("verbose", cmd.Flags().Lookup("verbose")); err != nil {
		return err
	}

	for key, dst := range map[string]*string{
		"project":       &config.Project,
		"jobs_dir":      &config.JobsDir,
		"write_root":    &config.WriteRoot,
		"id_prefix":     &config.IDPrefix,
		"timeout":       &config.Timeout,
		"poll_interval": &config.PollInterval,
		"log":           &config.Log,
	} {
		if overrides.IsSet(key) {
			*dst = overrides.GetString(key)
		}
	}
	// --verbose has a precedence over config file
	if overrides.GetBool("verbose") {
		config.Verbose = true
	}
	return nil
}

func storeConfig(path string, cfg model.Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return enc.Close()
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
