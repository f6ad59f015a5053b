package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/splix"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/splix/internal/version.buildVersion=...".
var buildVersion = ""

var readBuildInfo = debug.ReadBuildInfo

// Build describes the running binary.
type Build struct {
	Version  string
	Module   string
	Revision string
	Time     time.Time
	Dirty    bool
	Go       string
}

// String renders the build as a single line for `splix version`.
func (b Build) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", b.Module, b.Version)
	if b.Revision != "" {
		fmt.Fprintf(&sb, " (%s", shortRevision(b.Revision))
		if !b.Time.IsZero() {
			fmt.Fprintf(&sb, " %s", b.Time.UTC().Format(time.RFC3339))
		}
		sb.WriteString(")")
	}
	if b.Go != "" {
		fmt.Fprintf(&sb, " %s", b.Go)
	}
	return sb.String()
}

// Current returns the best available version string without a dirty suffix.
func Current() string {
	return Read().Version
}

// Module returns the main module path.
func Module() string {
	return Read().Module
}

// Read collects version information from the linker flag and build info.
func Read() Build {
	b := Build{Version: unknownVersion, Module: defaultModule, Go: runtime.Version()}
	info, ok := readBuildInfo()
	if ok {
		fillFromBuildInfo(&b, info)
	}
	if v := strings.TrimSpace(buildVersion); v != "" {
		b.Version = strings.TrimSuffix(v, "+dirty")
	}
	return b
}

func fillFromBuildInfo(b *Build, info *debug.BuildInfo) {
	if info == nil {
		return
	}
	if path := strings.TrimSpace(info.Main.Path); path != "" {
		b.Module = path
	}
	if info.GoVersion != "" {
		b.Go = info.GoVersion
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.Revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				b.Time = parsed
			}
		case "vcs.modified":
			b.Dirty = setting.Value == "true"
		}
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		b.Version = strings.TrimSuffix(v, "+dirty")
		return
	}
	if v := pseudoVersion(b.Revision, b.Time); v != "" {
		b.Version = v
	}
}

func pseudoVersion(revision string, at time.Time) string {
	if revision == "" || at.IsZero() {
		return ""
	}
	return "v0.0.0-" + at.UTC().Format("20060102150405") + "-" + shortRevision(revision)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
