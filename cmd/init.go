package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/hurou927/ora-schema-gen/internal/config"
	"github.com/hurou927/ora-schema-gen/internal/source"
)

var force bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and empty input templates",
	Long: `Writes the config file named by --config with every default filled in, and
header-only schema and grants CSV templates at the configured paths. Existing
files are only replaced after confirmation, or with --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		files := cfg.Files

		if ok, err := confirmOverwrite(cfgPath); err != nil {
			return err
		} else if ok {
			if err := config.Default().Save(cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", cfgPath)
		}

		templates := []struct {
			path    string
			headers []string
		}{
			{files.SchemaFile, source.SchemaHeaders},
			{files.GrantsFile, source.GrantHeaders},
		}
		for _, tpl := range templates {
			ok, err := confirmOverwrite(tpl.path)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := source.WriteTemplate(tpl.path, tpl.headers); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", tpl.path)
		}
		return nil
	},
}

// confirmOverwrite reports whether path may be written. Missing files are
// always written; existing ones need --force or a yes at the prompt.
func confirmOverwrite(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || force {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s exists, overwrite", path),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			logger.Info("keeping existing file", "file", path)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func init() {
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite existing files without asking")
	rootCmd.AddCommand(initCmd)
}
