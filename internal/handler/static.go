package handler

import (
	"io/fs"
	"net/http"
)

// StaticFiles serves stored pictures under /static/ from root.
// Directories answer 404 instead of listing their pictures.
func StaticFiles(root string) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(filesOnly{http.Dir(root)}))
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
