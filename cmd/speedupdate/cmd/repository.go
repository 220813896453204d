package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clearlinux/speedupdate/pkg/builder"
	"github.com/clearlinux/speedupdate/pkg/model"
	"github.com/clearlinux/speedupdate/pkg/repository"
)

var repositoryFlags struct {
	dir string
}

var repositoryCmd = &cobra.Command{
	Use:   "repository",
	Short: "Manage a speedupdate content repository",
}

var repositoryInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new, empty repository",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := repository.Init(repositoryFlags.dir); err != nil {
			fail(err)
		}
	},
}

var repositoryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the repository's current version and package count",
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		cur, err := repo.CurrentVersion()
		if err != nil && model.KindOf(err) != model.KindNotFound {
			fail(err)
		}
		packages, err := repo.Packages()
		if err != nil {
			fail(err)
		}
		if cur == "" {
			fmt.Println("current: (none)")
		} else {
			fmt.Printf("current: %s\n", cur)
		}
		fmt.Printf("packages: %d\n", len(packages))
	},
}

var repositoryCurrentVersionCmd = &cobra.Command{
	Use:   "current_version",
	Short: "Print the repository's current version",
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		cur, err := repo.CurrentVersion()
		if err != nil {
			fail(err)
		}
		fmt.Println(cur)
	},
}

var repositorySetCurrentVersionCmd = &cobra.Command{
	Use:   "set_current_version <rev>",
	Short: "Set the repository's current version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		if err := repo.SetCurrentVersion(model.CleanName(args[0])); err != nil {
			fail(err)
		}
	},
}

var repositoryLogCmd = &cobra.Command{
	Use:   "log [from [to]]",
	Short: "Print registered versions, oldest to newest",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		versions, err := repo.Versions()
		if err != nil {
			fail(err)
		}
		versions = sliceVersions(versions, args)
		for _, v := range versions {
			if v.Description != "" {
				fmt.Printf("%s  %s\n", v.Revision, v.Description)
			} else {
				fmt.Println(v.Revision)
			}
		}
	},
}

func sliceVersions(versions []*model.Version, args []string) []*model.Version {
	if len(args) == 0 {
		return versions
	}
	from := args[0]
	to := ""
	if len(args) > 1 {
		to = args[1]
	}
	start := -1
	end := len(versions)
	for i, v := range versions {
		if string(v.Revision) == from && start == -1 {
			start = i
		}
		if to != "" && string(v.Revision) == to {
			end = i + 1
		}
	}
	if start == -1 {
		return nil
	}
	return versions[start:end]
}

var repositoryPackagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List registered packages",
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		packages, err := repo.Packages()
		if err != nil {
			fail(err)
		}
		for _, p := range packages {
			fmt.Println(p.PackageDataName)
		}
	},
}

var registerVersionFlags struct {
	description     string
	descriptionFile string
}

var repositoryRegisterVersionCmd = &cobra.Command{
	Use:   "register_version <rev>",
	Short: "Register a new version in the repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		desc := registerVersionFlags.description
		if registerVersionFlags.descriptionFile != "" {
			data, err := readFile(registerVersionFlags.descriptionFile)
			if err != nil {
				fail(wrap(err, "reading --description-file"))
			}
			desc = strings.TrimSpace(string(data))
		}
		repo := repository.Open(repositoryFlags.dir)
		v := &model.Version{Revision: model.CleanName(args[0]), Description: desc}
		if err := repo.RegisterVersion(v); err != nil {
			fail(err)
		}
	},
}

var repositoryUnregisterVersionCmd = &cobra.Command{
	Use:   "unregister_version <rev>",
	Short: "Remove a registered version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		if err := repo.UnregisterVersion(model.CleanName(args[0])); err != nil {
			fail(err)
		}
	},
}

var repositoryRegisterPackageCmd = &cobra.Command{
	Use:   "register_package <meta>",
	Short: "Register a built package's metadata file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		if _, err := repo.RegisterPackage(args[0]); err != nil {
			fail(err)
		}
	},
}

var repositoryUnregisterPackageCmd = &cobra.Command{
	Use:   "unregister_package <meta>",
	Short: "Remove a package from the index (data blob is left on disk)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo := repository.Open(repositoryFlags.dir)
		name := strings.TrimSuffix(filepath.Base(args[0]), ".metadata")
		if err := repo.UnregisterPackage(model.CleanName(name)); err != nil {
			fail(err)
		}
	},
}

var buildPackageFlags struct {
	from       string
	fromDir    string
	compressor []string
	patcher    []string
	numThreads int
	buildDir   string
	register   bool
}

var repositoryBuildPackageCmd = &cobra.Command{
	Use:   "build_package <rev> <src>",
	Short: "Build a complete or patch package from a source tree",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		to := model.CleanName(args[0])
		src := args[1]

		opts := builder.DefaultOptions()
		if len(buildPackageFlags.compressor) > 0 {
			opts.Compressors = buildPackageFlags.compressor
		}
		if len(buildPackageFlags.patcher) > 0 {
			opts.Patchers = buildPackageFlags.patcher
		}
		if buildPackageFlags.numThreads > 0 {
			opts.NumThreads = buildPackageFlags.numThreads
		}

		var previousDir string
		var previousVersion *model.CleanName
		if buildPackageFlags.from != "" {
			if buildPackageFlags.fromDir == "" {
				failf("--from requires --from-dir (the previous version's source tree)")
			}
			from := model.CleanName(buildPackageFlags.from)
			previousVersion = &from
			previousDir = buildPackageFlags.fromDir
		}

		meta, err := builder.Build(src, previousDir, previousVersion, buildPackageFlags.buildDir, to, opts, nil)
		if err != nil {
			fail(err)
		}
		fmt.Println(meta.PackageDataName)

		if buildPackageFlags.register {
			repo := repository.Open(repositoryFlags.dir)
			metadataPath := filepath.Join(buildPackageFlags.buildDir, string(meta.PackageDataName)+".metadata")
			if _, err := repo.RegisterPackage(metadataPath); err != nil {
				fail(err)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(repositoryCmd)
	repositoryCmd.PersistentFlags().StringVar(&repositoryFlags.dir, "repo", ".", "repository directory")

	repositoryCmd.AddCommand(repositoryInitCmd)
	repositoryCmd.AddCommand(repositoryStatusCmd)
	repositoryCmd.AddCommand(repositoryCurrentVersionCmd)
	repositoryCmd.AddCommand(repositorySetCurrentVersionCmd)
	repositoryCmd.AddCommand(repositoryLogCmd)
	repositoryCmd.AddCommand(repositoryPackagesCmd)
	repositoryCmd.AddCommand(repositoryRegisterVersionCmd)
	repositoryCmd.AddCommand(repositoryUnregisterVersionCmd)
	repositoryCmd.AddCommand(repositoryRegisterPackageCmd)
	repositoryCmd.AddCommand(repositoryUnregisterPackageCmd)
	repositoryCmd.AddCommand(repositoryBuildPackageCmd)

	repositoryRegisterVersionCmd.Flags().StringVar(&registerVersionFlags.description, "description", "", "human-readable description of this version")
	repositoryRegisterVersionCmd.Flags().StringVar(&registerVersionFlags.descriptionFile, "description-file", "", "read the description from this file")

	repositoryBuildPackageCmd.Flags().StringVar(&buildPackageFlags.from, "from", "", "previous version to build a patch package against")
	repositoryBuildPackageCmd.Flags().StringVar(&buildPackageFlags.fromDir, "from-dir", "", "previous version's source tree (required with --from)")
	repositoryBuildPackageCmd.Flags().StringArrayVar(&buildPackageFlags.compressor, "compressor", nil, "candidate compressor spec, repeatable (default: builder.DefaultOptions)")
	repositoryBuildPackageCmd.Flags().StringArrayVar(&buildPackageFlags.patcher, "patcher", nil, "candidate patcher spec, repeatable (default: builder.DefaultOptions)")
	repositoryBuildPackageCmd.Flags().IntVar(&buildPackageFlags.numThreads, "num-threads", 0, "encoding worker count (default: one per CPU)")
	repositoryBuildPackageCmd.Flags().StringVar(&buildPackageFlags.buildDir, "build-dir", ".", "directory to write the built package and metadata into")
	repositoryBuildPackageCmd.Flags().BoolVar(&buildPackageFlags.register, "register", false, "register the built package with the repository once built")
}
