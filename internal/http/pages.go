package httpserver

import (
	"io/fs"
	"net/http"
	"path/filepath"
)

// page serves a static view from WebDir/views.
func (s *Server) page(name string) http.HandlerFunc {
	path := filepath.Join(s.cfg.WebDir, "views", name)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, path)
	}
}

// staticFiles serves the directory under root joined with elems, without
// directory listings.
func staticFiles(root string, elems ...string) http.Handler {
	dir := filepath.Join(append([]string{root}, elems...)...)
	return http.FileServer(noListingFS{http.Dir(dir)})
}

type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
