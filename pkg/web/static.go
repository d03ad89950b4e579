package web

import (
	"bytes"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/JaimeStill/shelf/pkg/routes"
)

// DistServer returns a handler that serves files from a filesystem subdirectory.
// It strips the URL prefix and serves from the specified subdirectory.
// Directory listings are not served.
func DistServer(fsys fs.FS, subdir, urlPrefix string) (http.Handler, error) {
	sub, err := fs.Sub(fsys, subdir)
	if err != nil {
		return nil, err
	}
	server := http.StripPrefix(urlPrefix, http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == urlPrefix || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		server.ServeHTTP(w, r)
	}), nil
}

// PublicFile returns a handler that serves a single file from a filesystem.
func PublicFile(fsys fs.FS, subdir, filename string) http.HandlerFunc {
	name := path.Join(subdir, filename)
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, filename, time.Time{}, bytes.NewReader(data))
	}
}

// PublicFileRoutes generates routes for serving multiple files at root-level URLs.
func PublicFileRoutes(fsys fs.FS, subdir string, files ...string) []routes.Route {
	routeList := make([]routes.Route, len(files))
	for i, file := range files {
		routeList[i] = routes.Route{
			Method:  "GET",
			Pattern: "/" + file,
			Handler: PublicFile(fsys, subdir, file),
		}
	}
	return routeList
}
