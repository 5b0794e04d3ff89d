package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"northpm/internal/config"
	"northpm/internal/northstar"
)

func newVersionCmd(configPath *string, jsonOutput *bool) *cobra.Command {
	var gamePath string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show northpm and installed Northstar versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": config.Version,
				"commit":  config.Commit,
				"date":    config.Date,
			}

			cfg, err := config.Ensure(*configPath)
			if err != nil {
				return err
			}
			if game, gameErr := resolveGame(cfg, gamePath); gameErr == nil {
				ns, nsErr := northstar.VersionNumber(game)
				if nsErr != nil {
					info["northstar_error"] = nsErr.Error()
				} else {
					info["northstar"] = ns
				}
			}

			if *jsonOutput {
				return print(true, info, "")
			}
			fmt.Printf("northpm %s\ncommit: %s\nbuilt at: %s\n", info["version"], info["commit"], info["date"])
			if ns, ok := info["northstar"]; ok {
				fmt.Printf("northstar: %s\n", ns)
			} else if msg, ok := info["northstar_error"]; ok {
				fmt.Printf("northstar: %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gamePath, "game-path", "", "Titanfall 2 install directory (overrides config)")
	return cmd
}
