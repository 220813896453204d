package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearlinux/speedupdate/pkg/executor"
	"github.com/clearlinux/speedupdate/pkg/integrity"
	"github.com/clearlinux/speedupdate/pkg/model"
	"github.com/clearlinux/speedupdate/pkg/planner"
	"github.com/clearlinux/speedupdate/pkg/remote"
	"github.com/clearlinux/speedupdate/pkg/workspace"
)

var workspaceFlags struct {
	dir string
}

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Apply repository content to a local tree",
}

var workspaceStatusCmd = &cobra.Command{
	Use:   "status [<url>]",
	Short: "Print the workspace's current state",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ws, err := workspace.Open(workspaceFlags.dir)
		if err != nil {
			fail(err)
		}
		state, err := ws.State()
		if err != nil {
			fail(err)
		}
		printState(state)

		if len(args) > 0 {
			repo := remote.AutoRepository(args[0])
			cur, err := repo.CurrentVersion()
			if err != nil {
				fail(err)
			}
			fmt.Printf("remote current: %s\n", cur)
		}
	},
}

func printState(state *model.WorkspaceState) {
	switch state.Kind {
	case model.StateNew:
		fmt.Println("New")
	case model.StateStable:
		fmt.Printf("Stable %s\n", state.StableVersion)
	case model.StateCorrupted:
		fmt.Printf("Corrupted %s (%d failure(s))\n", state.StableVersion, len(state.Failures))
		for _, f := range state.Failures {
			fmt.Printf("  %s\n", f)
		}
	case model.StateUpdating:
		fmt.Printf("Updating -> %s (%d/%d package(s) applied)\n", state.To, len(state.Completed), len(state.Available))
	}
}

var workspaceUpdateFlags struct {
	check bool
}

var workspaceUpdateCmd = &cobra.Command{
	Use:   "update [<url>] [<to>]",
	Short: "Update the workspace to a goal revision",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		location, to := workspaceArgs(args, true)

		ws, err := workspace.Open(workspaceFlags.dir)
		if err != nil {
			fail(err)
		}
		repo := remote.AutoRepository(location)

		var from *model.CleanName
		state, err := ws.State()
		if err != nil {
			fail(err)
		}
		switch state.Kind {
		case model.StateStable, model.StateCorrupted:
			v := state.StableVersion
			from = &v
		case model.StateUpdating:
			from = state.From
		}

		var goal *model.CleanName
		if to != "" {
			g := model.CleanName(to)
			goal = &g
		}

		packages, err := repo.Packages()
		if err != nil {
			fail(err)
		}
		remoteVersion, err := repo.CurrentVersion()
		if err != nil {
			fail(err)
		}

		plan, err := planner.ComputePlan(packages, from, goal, remoteVersion)
		if err != nil {
			fail(err)
		}

		opts := executor.Options{Check: workspaceUpdateFlags.check}
		if err := executor.Update(context.Background(), ws, repo, plan, opts, nil); err != nil {
			fail(err)
		}
	},
}

var workspaceCheckCmd = &cobra.Command{
	Use:   "check [<url>]",
	Short: "Verify the workspace's files against its current version's declared manifest",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		location, _ := workspaceArgs(args, false)

		ws, err := workspace.Open(workspaceFlags.dir)
		if err != nil {
			fail(err)
		}
		repo := remote.AutoRepository(location)

		report, err := integrity.Check(ws, repo, nil)
		if err != nil {
			fail(err)
		}
		if report.Clean() {
			fmt.Println("OK")
			return
		}
		fmt.Printf("%d failure(s):\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  %s\n", f)
		}
		os.Exit(1)
	},
}

var workspaceLogFlags struct {
	from   string
	to     string
	latest bool
}

var workspaceLogCmd = &cobra.Command{
	Use:   "log [<url>]",
	Short: "Print the versions available from a repository",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		location, _ := workspaceArgs(args, false)
		repo := remote.AutoRepository(location)

		if workspaceLogFlags.latest {
			cur, err := repo.CurrentVersion()
			if err != nil {
				fail(err)
			}
			fmt.Println(cur)
			return
		}

		versions, err := repo.Versions()
		if err != nil {
			fail(err)
		}
		var sliceArgs []string
		if workspaceLogFlags.from != "" {
			sliceArgs = append(sliceArgs, workspaceLogFlags.from)
			if workspaceLogFlags.to != "" {
				sliceArgs = append(sliceArgs, workspaceLogFlags.to)
			}
		}
		for _, v := range sliceVersions(versions, sliceArgs) {
			fmt.Println(v.Revision)
		}
	},
}

// workspaceArgs splits the optional [<url>] [<to>] positional
// arguments every workspace subcommand shares. withTo controls whether
// a second positional (the goal revision) is accepted.
func workspaceArgs(args []string, withTo bool) (location, to string) {
	if len(args) > 0 {
		location = args[0]
	}
	if withTo && len(args) > 1 {
		to = args[1]
	}
	if location == "" {
		cfg := loadConfigOrDefaults()
		location = cfg.Repository.Location
		if location == "" {
			failf("no repository location given and none configured (pass <url> or set Repository.LOCATION in %s)", configFile)
		}
	}
	return location, to
}

func init() {
	RootCmd.AddCommand(workspaceCmd)
	workspaceCmd.PersistentFlags().StringVar(&workspaceFlags.dir, "workspace", ".", "workspace directory")

	workspaceCmd.AddCommand(workspaceStatusCmd)
	workspaceCmd.AddCommand(workspaceUpdateCmd)
	workspaceCmd.AddCommand(workspaceCheckCmd)
	workspaceCmd.AddCommand(workspaceLogCmd)

	workspaceUpdateCmd.Flags().BoolVar(&workspaceUpdateFlags.check, "check", false, "run a full integrity check before committing Stable")

	workspaceLogCmd.Flags().StringVar(&workspaceLogFlags.from, "from", "", "first version to include")
	workspaceLogCmd.Flags().StringVar(&workspaceLogFlags.to, "to", "", "last version to include")
	workspaceLogCmd.Flags().BoolVar(&workspaceLogFlags.latest, "latest", false, "print only the repository's current version")
}
