package manifest

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cperrin88/mcfetch/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/*.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    = map[string]*gojsonschema.Schema{}
)

func schema(name string) (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		for _, n := range []string{"version", "asset_index"} {
			data, err := schemaFS.ReadFile("schema/" + n + ".json")
			if err != nil {
				schemaErr = err
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				schemaErr = fmt.Errorf("failed to compile %s schema: %w", n, err)
				return
			}
			schemas[n] = s
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	return schemas[name], nil
}

// validate checks data against the named schema. Malformed JSON is
// ErrManifestParse; well-formed JSON of the wrong shape is ErrManifestInvalid.
func validate(name string, data []byte) error {
	if !json.Valid(data) {
		return errors.Wrapf(errors.ErrManifestParse, "%s document is not valid JSON", name)
	}
	s, err := schema(name)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.Wrap(errors.ErrManifestParse, err.Error())
	}
	if !result.Valid() {
		var errs strings.Builder
		for _, desc := range result.Errors() {
			fmt.Fprintf(&errs, "\n- %s", desc)
		}
		return errors.Wrapf(errors.ErrManifestInvalid, "%s document:%s", name, errs.String())
	}
	return nil
}

// ParseVersion decodes and validates a version manifest.
func ParseVersion(r io.Reader) (*Version, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read version manifest")
	}
	if err := validate("version", data); err != nil {
		return nil, err
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(errors.ErrManifestParse, err.Error())
	}
	return &v, nil
}

// LoadVersion reads a version manifest from disk.
func LoadVersion(path string) (*Version, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrFileNotFound, "version manifest %s", path)
		}
		return nil, errors.Wrapf(err, "failed to open version manifest %s", path)
	}
	defer func() { _ = f.Close() }()
	return ParseVersion(f)
}

// ParseAssetIndex decodes and validates an asset index document.
func ParseAssetIndex(r io.Reader) (*AssetIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read asset index")
	}
	if err := validate("asset_index", data); err != nil {
		return nil, err
	}
	var idx AssetIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(errors.ErrManifestParse, err.Error())
	}
	return &idx, nil
}

// LoadAssetIndex reads an asset index from disk. A missing file is
// ErrAssetIndexMissing.
func LoadAssetIndex(path string) (*AssetIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrAssetIndexMissing, "%s", path)
		}
		return nil, errors.Wrapf(err, "failed to open asset index %s", path)
	}
	defer func() { _ = f.Close() }()
	return ParseAssetIndex(f)
}
