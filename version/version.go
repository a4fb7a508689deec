package version

import (
	"runtime/debug"
	"strings"
)

// Version can be set at build time:
// go build -ldflags "-X github.com/hexosynth/hexodsp/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix for modified trees, or "" if unknown.
var Hash = vcsHash()

// VersionOrHash is Version, or Hash if Version was not set.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func vcsHash() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(7, len(s.Value))]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// String describes the build for -v flags, e.g. "hexodsp-play 1.2.0".
func String(program string) string {
	parts := []string{program}
	if VersionOrHash != "" {
		parts = append(parts, VersionOrHash)
	} else {
		parts = append(parts, "(devel)")
	}
	return strings.Join(parts, " ")
}
