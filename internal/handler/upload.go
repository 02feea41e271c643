package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aryan0dhankhar/grievanceportal/internal/service"
)

// maxFormMemory is how much of a multipart body is held in memory; the rest
// spills to temporary files.
const maxFormMemory = 8 << 20

// readForm parses a urlencoded or multipart POST. The optional "picture" part
// is returned as an upload the caller must close.
func readForm(r *http.Request) (url.Values, *service.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, nil, noop, err
		}
		return r.PostForm, nil, noop, nil
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, nil, noop, err
	}
	file, header, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return r.PostForm, nil, noop, nil
	}
	if err != nil {
		return nil, nil, noop, err
	}
	if header.Filename == "" || header.Size == 0 {
		file.Close()
		return r.PostForm, nil, noop, nil
	}
	return r.PostForm, &service.Upload{Filename: header.Filename, Body: file}, func() { file.Close() }, nil
}

func filename(u *service.Upload) string {
	if u == nil {
		return ""
	}
	return u.Filename
}

// pageParam reads ?page=, treating anything but a positive integer as 1
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// idParam reads an integer path value; ok is false for anything else
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
