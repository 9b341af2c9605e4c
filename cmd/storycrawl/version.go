package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

// readBuildInfo fills in build details. Values set with ldflags take
// precedence over the module and VCS data embedded by the Go toolchain.
func readBuildInfo() buildInfo {
	bi := buildInfo{
		Version:   "(devel)",
		Commit:    "unknown",
		Date:      "unknown",
		GoVersion: runtime.Version(),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" {
			bi.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				bi.Commit = s.Value
				if len(bi.Commit) > 7 {
					bi.Commit = bi.Commit[:7]
				}
			case "vcs.time":
				bi.Date = s.Value
			}
		}
	}
	if version != "" {
		bi.Version = version
	}
	if commit != "" {
		bi.Commit = commit
	}
	if date != "" {
		bi.Date = date
	}
	return bi
}

func getVersion() string {
	return readBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, build date and Go version of storycrawl.`,
		Run: func(cmd *cobra.Command, _ []string) {
			bi := readBuildInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "storycrawl version %s\n", bi.Version)
			fmt.Fprintf(out, "  commit: %s\n", bi.Commit)
			fmt.Fprintf(out, "  built:  %s\n", bi.Date)
			fmt.Fprintf(out, "  go:     %s\n", bi.GoVersion)
		},
	}
}
