package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xetgo/internal/app"
	"xetgo/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when no config
// has been initialized yet.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if errors.Is(err, fs.ErrNotExist) {
		return config.NewConfig("", defaults["base_dir"]), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run (e.g. "Copy").
func newApp(operation string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "xet",
	Short: "Move data between storage backends",
}

// cp command
var cpCmd = &cobra.Command{
	Use:   "cp SOURCE DEST",
	Short: "Copy files or directories between backends",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp("Copy")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Copy(cmd.Context(), args[0], args[1], message, recursive); err != nil {
			a.Fail()
			return fmt.Errorf("copy failed: %w", err)
		}
		return nil
	},
}

// mv command
var mvCmd = &cobra.Command{
	Use:   "mv SOURCE TARGET",
	Short: "Move files or directories within one backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp("Move")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Move(cmd.Context(), args[0], args[1], message, recursive); err != nil {
			a.Fail()
			return fmt.Errorf("move failed: %w", err)
		}
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm URI...",
	Short: "Delete files or directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp("Remove")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Remove(cmd.Context(), args, message); err != nil {
			a.Fail()
			return fmt.Errorf("delete failed: %w", err)
		}
		return nil
	},
}

// info command
var infoCmd = &cobra.Command{
	Use:   "info URI",
	Short: "Show metadata for a single entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Info")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Path: %s\n", entry.Path)
		fmt.Printf("Type: %s\n", entry.Type)
		fmt.Printf("Size: %d\n", entry.Size)
		return nil
	},
}

// duplicate command
var duplicateCmd = &cobra.Command{
	Use:   "duplicate SOURCE",
	Short: "Duplicate a whole repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("dest")
		private, _ := cmd.Flags().GetBool("private")
		public, _ := cmd.Flags().GetBool("public")

		if private && public {
			return fmt.Errorf("--private and --public are mutually exclusive")
		}

		a, err := newApp("Duplicate")
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.Duplicate(cmd.Context(), args[0], dest, private, public)
		if err != nil {
			a.Fail()
			return fmt.Errorf("duplicate failed: %w", err)
		}

		fmt.Printf("Duplicated to %s\n", created)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("%s  %-10s  %s  %-8s  %s\n",
				op.ID[:8],
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
			if op.Message != "" {
				fmt.Printf("          %s\n", op.Message)
			}
		}
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token for the content-addressed backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")
		host, _ := cmd.Flags().GetString("host")
		force, _ := cmd.Flags().GetBool("force")
		noOverwrite, _ := cmd.Flags().GetBool("no-overwrite")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if host != "" {
			cfg.Domain = host
		}

		fmt.Fprintf(os.Stderr, "Personal access token for %s: ", cfg.Domain)
		tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		token := strings.TrimSpace(string(tokenBytes))
		if token == "" {
			return fmt.Errorf("empty token")
		}

		if err := app.Login(cmd.Context(), cfg, user, email, token, force, noOverwrite); err != nil {
			return err
		}

		fmt.Printf("Logged in to %s as %s\n", cfg.Domain, user)
		return nil
	},
}

// mount command
var mountCmd = &cobra.Command{
	Use:   "mount URI PATH",
	Short: "Mount a repository reference at a local path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefetch, _ := cmd.Flags().GetBool("prefetch")

		a, err := newApp("Mount")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Mount(cmd.Context(), args[0], args[1], prefetch); err != nil {
			return fmt.Errorf("mount failed: %w", err)
		}

		fmt.Printf("Mounted %s at %s\n", args[0], args[1])
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(domain, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Domain:   %s\n", cfg.Domain)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Domain:    %s\n", cfg.Domain)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Max Concurrent Copies: %d\n", cfg.MaxConcurrentCopies)
		fmt.Printf("Worker Pool Size:      %d\n", cfg.WorkerPoolSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
	cpCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	cpCmd.Flags().StringP("message", "m", "", "Audit message for transactional destinations")

	rootCmd.AddCommand(mvCmd)
	mvCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	mvCmd.Flags().StringP("message", "m", "", "Audit message for transactional backends")

	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().StringP("message", "m", "", "Audit message for transactional backends")

	rootCmd.AddCommand(infoCmd)

	rootCmd.AddCommand(duplicateCmd)
	duplicateCmd.Flags().String("dest", "", "Destination repository (default: <you>/<repo name>)")
	duplicateCmd.Flags().Bool("private", false, "Make the duplicate private")
	duplicateCmd.Flags().Bool("public", false, "Make the duplicate public")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().String("user", "", "Username on the remote service")
	loginCmd.Flags().String("email", "", "Email address")
	loginCmd.Flags().String("host", "", "Service URL (default: configured domain)")
	loginCmd.Flags().Bool("force", false, "Store the token without verifying it")
	loginCmd.Flags().Bool("no-overwrite", false, "Refuse to replace existing credentials")
	loginCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(mountCmd)
	mountCmd.Flags().Bool("prefetch", false, "Prefetch repository data")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("domain", "", "Remote service URL")
	configCmd.AddCommand(configListCmd)
}
