package api

import (
	"net/http"
)

// registerAssetRoutes serves bundled preset files, the targets of preset
// payload references.
func (s *Server) registerAssetRoutes() {
	if s.opts.Presets == nil {
		return
	}

	files := http.StripPrefix(AssetsPath, http.FileServer(http.FS(s.opts.Presets)))
	s.router.Get(AssetsPath+"/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", CacheOneDay)
		files.ServeHTTP(w, r)
	})
}
