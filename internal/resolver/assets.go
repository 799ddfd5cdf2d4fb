package resolver

import (
	"io/fs"
	"net/url"
	"strings"
)

// AssetLocator maps preset file names to extension-local URLs, answering
// only for files that exist in the preset directory.
type AssetLocator struct {
	baseURL string
	files   fs.FS
}

// NewAssetLocator returns a locator serving files from dir under baseURL.
func NewAssetLocator(baseURL string, files fs.FS) *AssetLocator {
	return &AssetLocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		files:   files,
	}
}

// PresetURL returns the URL for fileName and whether the file is present.
func (a *AssetLocator) PresetURL(fileName string) (string, bool) {
	if !fs.ValidPath(fileName) {
		return "", false
	}
	info, err := fs.Stat(a.files, fileName)
	if err != nil || info.IsDir() {
		return "", false
	}
	return a.baseURL + "/" + url.PathEscape(fileName), true
}
