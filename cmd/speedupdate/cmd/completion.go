package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionFlags struct {
	path string
}

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh]",
	Short:     "Generate a shell completion script for speedupdate",
	Args:      cobra.OnlyValidArgs,
	ValidArgs: []string{"bash", "zsh"},
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := "bash"
		if len(args) > 0 {
			shell = args[0]
		}

		path := completionFlags.path
		var err error
		switch shell {
		case "bash":
			if path == "" {
				path = "/usr/share/bash-completion/completions/speedupdate"
			}
			if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			err = RootCmd.GenBashCompletionFile(path)
		case "zsh":
			if path == "" {
				path = "/usr/share/zsh/site-functions/_speedupdate"
			}
			if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			err = RootCmd.GenZshCompletionFile(path)
		}
		return err
	},
}

func init() {
	RootCmd.AddCommand(completionCmd)
	completionCmd.Flags().StringVar(&completionFlags.path, "path", "", "completion file destination path override")
}
