package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/taskdesk/internal"
	"github.com/frahmantamala/taskdesk/pkg/logger"
)

var (
	configDir string
	token     string
	assumeYes bool
	output    string
)

var rootCmd = &cobra.Command{
	Use:           "taskdesk",
	Short:         "Taskdesk",
	Long:          `Task and messaging dashboard for admins and employees, kept live over the backend's push channel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, internal.UserMessage(err, err.Error()))
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// Containers configure through the environment only
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("TASKDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// The config file is optional; defaults and environment cover every key.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := internal.Defaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("push.url", d.Push.URL)
	v.SetDefault("push.origin", d.Push.Origin)
	v.SetDefault("push.dial_timeout", d.Push.DialTimeout)
	v.SetDefault("session.token", "")
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.db_path", d.Notifications.DBPath)
	v.SetDefault("notifications.queue_size", d.Notifications.QueueSize)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// setup loads the configuration, installs the logger and applies the
// persistent flags on top.
func setup() (*internal.Config, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Format, cfg.Logging.Level)
	if token != "" {
		cfg.Session.Token = token
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding config.yml")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "session token (overrides session.token)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "confirm destructive actions without asking")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(employeesCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sandboxCmd)
}
