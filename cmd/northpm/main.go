package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"northpm/internal/audit"
	"northpm/internal/config"
	"northpm/internal/consent"
	"northpm/internal/gameinstall"
	"northpm/internal/install"
	"northpm/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:           "northpm",
		Short:         "Install and manage Northstar plugin packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newInstallCmd(&configPath, &jsonOutput))
	cmd.AddCommand(newUninstallCmd(&configPath, &jsonOutput))
	cmd.AddCommand(newListCmd(&configPath, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&configPath, &jsonOutput))
	cmd.AddCommand(newConfigCmd(&configPath, &jsonOutput))

	return cmd
}

// resolveGame merges the configured game path with a flag override.
func resolveGame(cfg config.Config, gamePath string) (gameinstall.GameInstall, error) {
	path := gamePath
	if path == "" {
		path = cfg.Game.Path
	}
	if path == "" {
		return gameinstall.GameInstall{}, fmt.Errorf("no game path configured; set game.path or pass --game-path")
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return gameinstall.GameInstall{}, err
	}
	return gameinstall.GameInstall{
		GamePath:    expanded,
		InstallType: gameinstall.InstallType(cfg.Game.InstallType),
	}, nil
}

func auditPath(cfg config.Config, game gameinstall.GameInstall) string {
	if cfg.Logging.AuditPath != "" {
		return cfg.Logging.AuditPath
	}
	return store.AuditPath(game.ProfilePath())
}

func newInstallCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	var gamePath string
	var yes bool

	cmd := &cobra.Command{
		Use:   "install <archive.zip> <author-name-version>",
		Short: "Install a plugin package from a downloaded archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			game, err := resolveGame(cfg, gamePath)
			if err != nil {
				return err
			}
			archive, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			broker := consent.NewBroker()
			if yes {
				broker.Subscribe(consent.NotifierFunc(func(id uint64) {
					_ = broker.SubmitTo(id, true)
				}))
			} else {
				broker.Subscribe(consent.NotifierFunc(func(id uint64) {
					go promptForConsent(broker, id, args[1])
				}))
			}

			svc := &install.Service{
				Consent:        broker,
				Audit:          audit.New(auditPath(cfg, game)),
				ConsentTimeout: cfg.ConsentTimeout(),
			}
			if !*jsonOutput {
				var bar *progressbar.ProgressBar
				svc.Progress = func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetDescription("extracting"),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				}
			}

			if err := svc.Install(cmd.Context(), game, archive, args[1], cfg.Plugins.Allowed); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"installed": args[1]}, color.Success.Sprintf("installed %s", args[1]))
		},
	}
	cmd.Flags().StringVar(&gamePath, "game-path", "", "Titanfall 2 install directory (overrides config)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "approve plugin installs without prompting")
	return cmd
}

// promptForConsent is the CLI stand-in for the graphical front-end:
// it renders the plugin warning and echoes the request ID back with
// the user's decision.
func promptForConsent(broker *consent.Broker, id uint64, modString string) {
	color.Warn.Printf("%s contains native plugins; plugins run with full privileges inside the game process\n", modString)
	fmt.Print("install anyway? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		_ = broker.SubmitTo(id, false)
		return
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	_ = broker.SubmitTo(id, answer == "y" || answer == "yes")
}

func newUninstallCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	var gamePath string

	cmd := &cobra.Command{
		Use:     "uninstall <name>",
		Aliases: []string{"remove", "rm"},
		Short:   "Remove every installed version of a plugin package",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			game, err := resolveGame(cfg, gamePath)
			if err != nil {
				return err
			}
			svc := &install.Service{Audit: audit.New(auditPath(cfg, game))}
			removed, err := svc.Uninstall(game, args[0])
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				return print(*jsonOutput, map[string][]string{"removed": {}}, fmt.Sprintf("nothing installed under the name %q", args[0]))
			}
			return print(*jsonOutput, map[string][]string{"removed": removed}, color.Success.Sprintf("removed %s", strings.Join(removed, ", ")))
		},
	}
	cmd.Flags().StringVar(&gamePath, "game-path", "", "Titanfall 2 install directory (overrides config)")
	return cmd
}

func newListCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	var gamePath string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed plugin packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			game, err := resolveGame(cfg, gamePath)
			if err != nil {
				return err
			}
			mods, err := store.ListInstalled(game.PluginsDir())
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, mods, "")
			}
			if len(mods) == 0 {
				fmt.Println("no plugin packages installed")
				return nil
			}
			for _, m := range mods {
				fmt.Printf("- %s %s (by %s)\n", color.Bold.Sprint(m.Name), m.Version, m.Author)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gamePath, "game-path", "", "Titanfall 2 install directory (overrides config)")
	return cmd
}

func newConfigCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Inspect and change northpm configuration"}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, cfg, "")
			}
			fmt.Printf("game path:       %s\n", cfg.Game.Path)
			fmt.Printf("install type:    %s\n", cfg.Game.InstallType)
			fmt.Printf("plugins allowed: %t\n", cfg.Plugins.Allowed)
			fmt.Printf("consent timeout: %s\n", cfg.Plugins.ConsentTimeout)
			return nil
		},
	}

	var gamePath string
	var installType string
	var allowPlugins string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			if gamePath != "" {
				cfg.Game.Path = gamePath
			}
			if installType != "" {
				cfg.Game.InstallType = strings.ToUpper(installType)
			}
			if allowPlugins != "" {
				cfg.Plugins.Allowed = allowPlugins == "true"
			}
			if err := config.Save(*configPath, cfg); err != nil {
				return err
			}
			return print(*jsonOutput, cfg, "configuration updated")
		},
	}
	setCmd.Flags().StringVar(&gamePath, "game-path", "", "Titanfall 2 install directory")
	setCmd.Flags().StringVar(&installType, "install-type", "", "STEAM|ORIGIN|EAPLAY|UNKNOWN")
	setCmd.Flags().StringVar(&allowPlugins, "allow-plugins", "", "true|false")

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(setCmd)
	return configCmd
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
