package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skymock/app/config"
	"skymock/app/export"
	"skymock/app/models"
	"skymock/service"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already printed the error, just exit
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:   "skymock",
		Short: "Bluesky post image generator",
		Long: `Compose Bluesky-style posts or pull real ones from the public AppView,
preview them live in the browser and export them as PNG images.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			cfg, err = config.Load(configPath)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "YAML config file (optional)")

	conf := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCmd(conf),
		newFetchCmd(conf),
		newRenderCmd(conf),
		newExportCmd(conf),
		newStoreCmd(conf),
		newVersionCmd(),
	)
	return root
}

// skymock serve
func newServeCmd(conf func() *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.RunServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// skymock fetch
func newFetchCmd(conf func() *config.Config) *cobra.Command {
	var handle, postURL string
	cmd := &cobra.Command{
		Use:   "fetch (--handle HANDLE | --url POST_URL)",
		Short: "Fetch posts from Bluesky and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return service.Fetch(cmd.Context(), conf(), handle, postURL, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&handle, "handle", "", "Bluesky handle whose recent posts to list")
	cmd.Flags().StringVar(&postURL, "url", "", "bsky.app post URL to look up")
	cmd.MarkFlagsMutuallyExclusive("handle", "url")
	cmd.MarkFlagsOneRequired("handle", "url")
	return cmd
}

// skymock render
func newRenderCmd(conf func() *config.Config) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "render -f post.json",
		Short: "Render a post as preview HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := service.LoadPost(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return service.RenderPost(conf(), data, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Post JSON file, - for stdin")
	return cmd
}

// skymock export
func newExportCmd(conf func() *config.Config) *cobra.Command {
	var file, theme, size, outDir string
	cmd := &cobra.Command{
		Use:   "export -f post.json [--theme dark] [--size large] [-o dir]",
		Short: "Export a post as a PNG image",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := service.LoadPost(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			path, err := service.ExportPost(cmd.Context(), conf(), data, models.ParseTheme(theme), export.ParseSize(size), outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Image exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Post JSON file, - for stdin")
	cmd.Flags().StringVar(&theme, "theme", "light", "Export theme: light or dark")
	cmd.Flags().StringVar(&size, "size", "", "Card size: small, medium or large")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")
	return cmd
}

// skymock store
func newStoreCmd(conf func() *config.Config) *cobra.Command {
	var yes bool
	store := func(cmd *cobra.Command) *service.Store {
		s := service.NewStore(conf().Storage.Path, cmd.InOrStdin(), cmd.OutOrStdout())
		s.Yes = yes
		return s
	}
	quiet := func(err error) error {
		if errors.Is(err, service.ErrCancelled) {
			return nil
		}
		return err
	}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the preference and avatar store",
	}
	cmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Initialize a new empty database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return store(cmd).Init()
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Delete the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return quiet(store(cmd).Clean())
			},
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Create a backup of the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := store(cmd).Backup()
				return err
			},
		},
		&cobra.Command{
			Use:   "restore FILE",
			Short: "Restore the database from a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return quiet(store(cmd).Restore(args[0]))
			},
		},
	)
	return cmd
}

// skymock version
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "skymock version %s\n", version)
		},
	}
}

