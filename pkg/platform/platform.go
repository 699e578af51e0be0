package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform is a target OS and architecture in Go naming.
// Both may be "any" to match every platform.
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// currentPlatformFunc is swapped out in tests.
var currentPlatformFunc = func() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// CurrentPlatform returns the platform mcfetch is running on.
func CurrentPlatform() Platform {
	return currentPlatformFunc()
}

// Matches checks if this platform matches the target platform.
// "any" is a wildcard that matches any value.
func (p Platform) Matches(target Platform) bool {
	return (p.OS == AnyOS || target.OS == AnyOS || p.OS == target.OS) &&
		(p.Arch == AnyArch || target.Arch == AnyArch || p.Arch == target.Arch)
}

// String returns a string representation of the platform
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// ManifestOS returns the OS name used by launcher manifests in rules and
// native classifier maps.
func (p Platform) ManifestOS() string {
	switch p.OS {
	case OSDarwin:
		return ManifestOSX
	default:
		return p.OS
	}
}

// Bits returns "64" or "32", the value substituted for ${arch} in native
// classifiers.
func (p Platform) Bits() string {
	switch p.Arch {
	case Arch386, ArchARM:
		return "32"
	default:
		return "64"
	}
}

// ExpandClassifier substitutes ${arch} in a native classifier template.
func (p Platform) ExpandClassifier(classifier string) string {
	return strings.ReplaceAll(classifier, "${arch}", p.Bits())
}

// NormalizeOS normalizes OS names, including manifest names, to Go naming.
func NormalizeOS(os string) string {
	os = strings.ToLower(strings.TrimSpace(os))
	switch os {
	case "darwin", "macos", "osx":
		return OSDarwin
	case "win", "windows":
		return OSWindows
	default:
		return os
	}
}

// NormalizeArch normalizes architecture names to Go naming.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch {
	case arch == "x86_64" || arch == "x64":
		return ArchAMD64
	case arch == "x86" || (len(arch) == 4 && arch[0] == 'i' && strings.HasSuffix(arch, "86")):
		return Arch386
	case arch == "aarch64":
		return ArchARM64
	case strings.HasPrefix(arch, "armv"):
		return ArchARM
	default:
		return arch
	}
}
