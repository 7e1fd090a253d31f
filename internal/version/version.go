// Package version reports the build identity of the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/fmueller/transcriptor/internal/version.Version=...".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
	Go      string
}

func Get() Info {
	build, _ := debug.ReadBuildInfo()
	return resolve(Version, Commit, Date, build)
}

// Resolve returns the version string printed by `transcriptor version`.
func Resolve() string {
	return Get().String()
}

func (i Info) String() string {
	v := i.Version
	if i.Commit != "" {
		v += "+" + shortCommit(i.Commit)
		if i.Dirty {
			v += "-dirty"
		}
	}
	return v
}

func (i Info) Detail() string {
	date := i.Date
	if date == "" {
		date = "unknown"
	}
	commit := i.Commit
	if commit == "" {
		commit = "unknown"
	}
	return fmt.Sprintf("version %s\ncommit  %s\nbuilt   %s\ngo      %s", i.Version, commit, date, i.Go)
}

// resolve prefers linker-injected values and falls back to the module and VCS stamps the Go
// toolchain embeds.
func resolve(version, commit, date string, build *debug.BuildInfo) Info {
	info := Info{Version: version, Commit: commit, Date: date, Go: runtime.Version()}

	if build != nil {
		if build.GoVersion != "" {
			info.Go = build.GoVersion
		}
		if info.Version == "" && build.Main.Version != "" && build.Main.Version != "(devel)" {
			info.Version = strings.TrimPrefix(build.Main.Version, "v")
		}
		for _, setting := range build.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = setting.Value
				}
			case "vcs.modified":
				info.Dirty = setting.Value == "true"
			}
		}
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}
	return info
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
