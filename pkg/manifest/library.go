package manifest

import (
	"strings"

	"github.com/cperrin88/mcfetch/pkg/platform"
	"github.com/hashicorp/go-version"
)

// DefaultExtractExclude is used when a native library declares no excludes.
var DefaultExtractExclude = []string{"META-INF/"}

// Library is one entry of a version's library list.
type Library struct {
	Name      string            `json:"name"`
	URL       string            `json:"url,omitempty"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	Extract   *Extract          `json:"extract,omitempty"`
}

// LibraryDownloads lists the main artifact and classifier artifacts.
type LibraryDownloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

// Extract lists path prefixes skipped when unpacking a native jar.
type Extract struct {
	Exclude []string `json:"exclude,omitempty"`
}

// Rule allows or disallows a library on matching platforms.
type Rule struct {
	Action   string          `json:"action"`
	OS       *OSRule         `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// OSRule restricts a rule to an OS name, an arch and an OS version regexp.
type OSRule struct {
	Name    string `json:"name,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Version string `json:"version,omitempty"`
}

// Coordinate is a parsed group:artifact:version[:classifier] name.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
}

// ParseCoordinate splits a library name. ok is false when fewer than three
// parts are present.
func ParseCoordinate(name string) (Coordinate, bool) {
	parts := strings.Split(name, ":")
	if len(parts) < 3 {
		return Coordinate{}, false
	}
	c := Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2]}
	if len(parts) > 3 {
		c.Classifier = parts[3]
	}
	return c, true
}

// Key identifies a library independently of its version.
func (c Coordinate) Key() string {
	if c.Classifier != "" {
		return c.Group + ":" + c.Artifact + ":" + c.Classifier
	}
	return c.Group + ":" + c.Artifact
}

// Path is the maven repository layout path of the coordinate.
func (c Coordinate) Path() string {
	file := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		file += "-" + c.Classifier
	}
	return strings.ReplaceAll(c.Group, ".", "/") + "/" + c.Artifact + "/" + c.Version + "/" + file + ".jar"
}

// Applies evaluates the library rules for plat. Without rules a library
// always applies; otherwise the last matching rule decides and nothing
// matching means disallowed.
func (l Library) Applies(plat platform.Platform) bool {
	if len(l.Rules) == 0 {
		return true
	}
	allowed := false
	for _, r := range l.Rules {
		if r.matches(plat) {
			allowed = r.Action == "allow"
		}
	}
	return allowed
}

func (r Rule) matches(plat platform.Platform) bool {
	// feature-gated rules target optional launcher modes, none of which are enabled
	for _, want := range r.Features {
		if want {
			return false
		}
	}
	if r.OS == nil {
		return true
	}
	target := platform.Platform{OS: platform.AnyOS, Arch: platform.AnyArch}
	if r.OS.Name != "" {
		target.OS = platform.NormalizeOS(r.OS.Name)
	}
	if !plat.Matches(target) {
		return false
	}
	if r.OS.Arch != "" {
		is32 := plat.Bits() == "32"
		if (r.OS.Arch == "x86") != is32 {
			return false
		}
	}
	// OS.Version constrains the host OS release, which is not tracked.
	return true
}

// NativeClassifier returns the classifier artifact for plat, if the library
// ships natives for it.
func (l Library) NativeClassifier(plat platform.Platform) (string, *Artifact, bool) {
	template, ok := l.Natives[plat.ManifestOS()]
	if !ok || l.Downloads == nil {
		return "", nil, false
	}
	classifier := plat.ExpandClassifier(template)
	art, ok := l.Downloads.Classifiers[classifier]
	if !ok || art == nil {
		return "", nil, false
	}
	return classifier, art, true
}

// ExcludePrefixes returns the extraction excludes, or the default.
func (l Library) ExcludePrefixes() []string {
	if l.Extract == nil || len(l.Extract.Exclude) == 0 {
		return DefaultExtractExclude
	}
	return l.Extract.Exclude
}

// DedupeLibraries keeps one library per group:artifact[:classifier], the one
// with the highest version. The survivor takes the position of the first
// occurrence. Unparseable names are kept as they are.
func DedupeLibraries(libs []Library) []Library {
	index := make(map[string]int, len(libs))
	out := make([]Library, 0, len(libs))
	for _, lib := range libs {
		coord, ok := ParseCoordinate(lib.Name)
		if !ok {
			out = append(out, lib)
			continue
		}
		i, seen := index[coord.Key()]
		if !seen {
			index[coord.Key()] = len(out)
			out = append(out, lib)
			continue
		}
		existing, _ := ParseCoordinate(out[i].Name)
		if newer(coord.Version, existing.Version) {
			out[i] = lib
		}
	}
	return out
}

// newer reports whether a is a higher version than b. Versions go-version
// cannot parse lose against ones it can, and compare as strings otherwise.
func newer(a, b string) bool {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.GreaterThan(vb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a > b
	}
}
