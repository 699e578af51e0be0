package orchestrator

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cperrin88/mcfetch/pkg/download"
	pkgerrors "github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/cperrin88/mcfetch/pkg/manifest"
	"github.com/cperrin88/mcfetch/pkg/platform"
)

// NativeJar is a downloaded native library archive and what to skip when
// unpacking it.
type NativeJar struct {
	Path    string
	Exclude []string
}

// VersionItems turns a version manifest into download items: the client jar,
// every library applicable to plat (one per group:artifact[:classifier], the
// newest version winning), their native classifiers, the asset index and the
// logging configuration. The result is ordered by descending priority.
func VersionItems(v *manifest.Version, paths PathProvider, plat platform.Platform) []download.Item {
	items, _ := versionPlan(v, paths, plat)
	return items
}

// VersionNatives returns the native archives VersionItems schedules for plat.
func VersionNatives(v *manifest.Version, paths PathProvider, plat platform.Platform) []NativeJar {
	_, natives := versionPlan(v, paths, plat)
	return natives
}

func versionPlan(v *manifest.Version, paths PathProvider, plat platform.Platform) ([]download.Item, []NativeJar) {
	if v == nil {
		return nil, nil
	}
	var (
		items   []download.Item
		natives []NativeJar
	)

	if client := v.Client(); client != nil && client.URL != "" {
		items = append(items, download.Item{
			URL:      client.URL,
			Path:     filepath.Join(paths.VersionDir(v.ID), v.ID+".jar"),
			Size:     client.Size,
			Digest:   client.SHA1,
			Priority: download.PriorityCritical,
		})
	}

	applicable := make([]manifest.Library, 0, len(v.Libraries))
	for _, lib := range v.Libraries {
		if lib.Applies(plat) {
			applicable = append(applicable, lib)
		}
	}
	for _, lib := range manifest.DedupeLibraries(applicable) {
		if item, ok := libraryItem(lib, paths); ok {
			items = append(items, item)
		}
		classifier, art, ok := lib.NativeClassifier(plat)
		if !ok || art.URL == "" {
			continue
		}
		item := download.Item{
			URL:      art.URL,
			Path:     filepath.Join(paths.LibrariesDir(), libraryPath(lib.Name, classifier, art.Path)),
			Size:     art.Size,
			Digest:   art.SHA1,
			Priority: download.PriorityHigh,
		}
		items = append(items, item)
		natives = append(natives, NativeJar{Path: item.Path, Exclude: lib.ExcludePrefixes()})
	}

	if ref := v.AssetIndex; ref != nil && ref.URL != "" {
		items = append(items, download.Item{
			URL:      ref.URL,
			Path:     filepath.Join(paths.AssetIndexesDir(), v.AssetIndexID()+".json"),
			Size:     ref.Size,
			Digest:   ref.SHA1,
			Priority: download.PriorityHigh,
		})
	}

	if v.Logging != nil && v.Logging.Client != nil {
		file := v.Logging.Client.File
		if file.URL != "" && file.ID != "" {
			items = append(items, download.Item{
				URL:      file.URL,
				Path:     filepath.Join(paths.LogConfigsDir(), file.ID),
				Size:     file.Size,
				Digest:   file.SHA1,
				Priority: download.PriorityNormal,
			})
		}
	}

	download.SortByPriority(items)
	return items, natives
}

// libraryItem builds the main artifact download of lib. Libraries without a
// downloads block are fetched from their maven repository URL.
func libraryItem(lib manifest.Library, paths PathProvider) (download.Item, bool) {
	if lib.Downloads != nil && lib.Downloads.Artifact != nil {
		art := lib.Downloads.Artifact
		if art.URL == "" {
			return download.Item{}, false
		}
		return download.Item{
			URL:      art.URL,
			Path:     filepath.Join(paths.LibrariesDir(), libraryPath(lib.Name, "", art.Path)),
			Size:     art.Size,
			Digest:   art.SHA1,
			Priority: download.PriorityHigh,
		}, true
	}
	if lib.Downloads != nil || lib.URL == "" {
		return download.Item{}, false
	}
	coord, ok := manifest.ParseCoordinate(lib.Name)
	if !ok {
		return download.Item{}, false
	}
	return download.Item{
		URL:      strings.TrimSuffix(lib.URL, "/") + "/" + coord.Path(),
		Path:     filepath.Join(paths.LibrariesDir(), filepath.FromSlash(coord.Path())),
		Priority: download.PriorityHigh,
	}, true
}

// libraryPath prefers the manifest's own path and falls back to the maven
// layout of the coordinate.
func libraryPath(name, classifier, declared string) string {
	if declared != "" {
		return filepath.FromSlash(declared)
	}
	coord, ok := manifest.ParseCoordinate(name)
	if !ok {
		return filepath.FromSlash(name)
	}
	if classifier != "" {
		coord.Classifier = classifier
	}
	return filepath.FromSlash(coord.Path())
}

// AssetItems turns an asset index into one low priority item per object,
// stored and fetched under <hash[0:2]>/<hash>. Items follow the sorted asset
// names.
func AssetItems(index *manifest.AssetIndex, paths PathProvider, baseURL string) ([]download.Item, error) {
	if index == nil {
		return nil, nil
	}
	names := make([]string, 0, len(index.Objects))
	for name := range index.Objects {
		names = append(names, name)
	}
	sort.Strings(names)

	baseURL = strings.TrimSuffix(baseURL, "/")
	items := make([]download.Item, 0, len(names))
	for _, name := range names {
		obj := index.Objects[name]
		hash := strings.ToLower(obj.Hash)
		if len(hash) < 3 {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrManifestInvalid, "asset %q has hash %q", name, obj.Hash)
		}
		shard := hash[:2]
		items = append(items, download.Item{
			URL:      baseURL + "/" + shard + "/" + hash,
			Path:     filepath.Join(paths.AssetObjectsDir(), shard, hash),
			Size:     obj.Size,
			Digest:   hash,
			Priority: download.PriorityLow,
		})
	}
	return items, nil
}
