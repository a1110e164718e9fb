package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dmdcache/dmdcache/internal/cache"
	"github.com/dmdcache/dmdcache/internal/common"
)

var adminCommandNames = map[string]bool{
	"stats":      true,
	"zero-stats": true,
	"clean":      true,
	"version":    true,
	"help":       true,
	"--help":     true,
	"-h":         true,
	"--version":  true,
	"-v":         true,
	"completion": true,
}

func isAdminCommand(arg string) bool {
	return adminCommandNames[arg]
}

func makeAdminConfig() (*cache.Config, error) {
	settings, err := common.LoadSettings()
	if err != nil {
		return nil, err
	}
	return cache.MakeConfig(settings.CacheDir, settings.MaxSize, settings.HashAlgo, settings.LockTimeout)
}

func executeAdminCommand() {
	rootCmd := &cobra.Command{
		Use:     "dmdcache",
		Short:   "a compiler cache for the D compiler",
		Long:    "dmdcache wraps dmd and reuses previously compiled object files.\nSymlink it as `dmd` somewhere early in PATH, or call `dmdcache dmd <args>`.",
		Version: common.GetVersion(),
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and current size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := makeAdminConfig()
			if err != nil {
				return err
			}
			ledger := cache.MakeLedger(cfg)
			totals, err := ledger.Snapshot()
			if err != nil {
				return err
			}
			usage := cache.MakeUsageTracker(cfg)
			usedBytes, err := usage.CurrentUsage()
			if err != nil {
				return err
			}

			fmt.Printf("cache directory   %s\n", cfg.RootDir)
			fmt.Printf("cache hits        %d\n", totals.Hits)
			fmt.Printf("cache misses      %d\n", totals.Misses)
			fmt.Printf("direct calls      %d\n", totals.Direct)
			fmt.Printf("errors            %d\n", totals.Errors)
			fmt.Printf("entries           %d\n", usage.CountEntries())
			fmt.Printf("cache size        %s / %s\n",
				humanize.Bytes(uint64(usedBytes)), humanize.Bytes(uint64(cfg.LimitBytes)))
			return nil
		},
	}

	zeroStatsCmd := &cobra.Command{
		Use:   "zero-stats",
		Short: "Reset all hit/miss/direct/error counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := makeAdminConfig()
			if err != nil {
				return err
			}
			cache.MakeLedger(cfg).Reset()
			fmt.Println("statistics cleared")
			return nil
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Recompute cache usage and evict down to the size limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := makeAdminConfig()
			if err != nil {
				return err
			}
			usage := cache.MakeUsageTracker(cfg)
			if err = usage.Clean(); err != nil {
				return err
			}
			usedBytes, err := usage.CurrentUsage()
			if err != nil {
				return err
			}
			fmt.Printf("cache size is now %s\n", humanize.Bytes(uint64(usedBytes)))
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the dmdcache version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(common.GetVersion())
		},
	}

	rootCmd.AddCommand(statsCmd, zeroStatsCmd, cleanCmd, versionCmd)
	adminArgs := os.Args[1:]
	if len(adminArgs) > 0 && adminArgs[0] == "-v" {
		adminArgs[0] = "--version"
	}
	rootCmd.SetArgs(adminArgs)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
