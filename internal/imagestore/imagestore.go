// Package imagestore persists uploaded pictures under server-generated names.
package imagestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/metrics"
	"github.com/aryan0dhankhar/grievanceportal/internal/observability/tracing"
)

// Kind selects the directory or key prefix a picture is stored under
type Kind string

const (
	ProfilePictures   Kind = "profile_pics"
	GrievancePictures Kind = "grievance_pics"
)

// ErrExists is returned by a Backend when the name is already taken
var ErrExists = errors.New("image already exists")

const nameAttempts = 3

// StorageError reports a failed store or delete. It wraps the cause.
type StorageError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("imagestore %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Backend writes named objects for a kind
type Backend interface {
	Put(ctx context.Context, kind Kind, name string, data []byte, contentType string) error
	Delete(ctx context.Context, kind Kind, name string) error
	URL(kind Kind, name string) string
}

// Transform rewrites image bytes before they are persisted
type Transform func(data []byte, ext string) ([]byte, error)

// Service names, transforms and persists uploaded pictures
type Service struct {
	backend Backend
	logger  *slog.Logger
	random  io.Reader
}

// NewService creates an image service on top of backend
func NewService(backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, logger: logger, random: rand.Reader}
}

// Store reads body, applies transform when non-nil and persists the result
// under a fresh random name carrying the original extension in lower case.
// It returns the stored name. Every failure is a *StorageError.
func (s *Service) Store(ctx context.Context, kind Kind, originalFilename string, body io.Reader, transform Transform) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "imagestore.Store")
	defer span.End()

	start := time.Now()
	name, err := s.store(ctx, kind, originalFilename, body, transform)
	if err != nil {
		metrics.ObserveImageUpload(string(kind), "error", time.Since(start))
		s.logger.Warn("failed to store image",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	metrics.ObserveImageUpload(string(kind), "success", time.Since(start))
	s.logger.Debug("image stored", slog.String("kind", string(kind)), slog.String("name", name))
	return name, nil
}

func (s *Service) store(ctx context.Context, kind Kind, originalFilename string, body io.Reader, transform Transform) (string, error) {
	fail := func(err error) error { return &StorageError{Op: "store", Kind: kind, Err: err} }

	ext := Extension(originalFilename)
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", fail(fmt.Errorf("unsupported image extension %q", ext))
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fail(fmt.Errorf("read upload: %w", err))
	}
	if len(data) == 0 {
		return "", fail(errors.New("empty upload"))
	}

	if transform != nil {
		if data, err = transform(data, ext); err != nil {
			return "", fail(err)
		}
	}

	for attempt := 0; attempt < nameAttempts; attempt++ {
		name, err := s.randomName(ext)
		if err != nil {
			return "", fail(err)
		}

		err = s.backend.Put(ctx, kind, name, data, contentType)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, ErrExists) {
			return "", fail(err)
		}
	}
	return "", fail(errors.New("could not allocate a unique name"))
}

// Delete removes a stored picture. Empty names and the default profile
// picture are never deleted.
func (s *Service) Delete(ctx context.Context, kind Kind, name string) error {
	if name == "" || name == domain.DefaultImageFile {
		return nil
	}
	if err := s.backend.Delete(ctx, kind, name); err != nil {
		return &StorageError{Op: "delete", Kind: kind, Err: err}
	}
	return nil
}

// URL returns the public location of a stored picture, or "" for no picture
func (s *Service) URL(kind Kind, name string) string {
	if name == "" {
		return ""
	}
	return s.backend.URL(kind, name)
}

// EnsurePlaceholder stores the default profile picture if the backend lacks it
func (s *Service) EnsurePlaceholder(ctx context.Context) error {
	data, err := Placeholder()
	if err != nil {
		return err
	}
	err = s.backend.Put(ctx, ProfilePictures, domain.DefaultImageFile, data, contentTypes[".jpg"])
	if err != nil && !errors.Is(err, ErrExists) {
		return &StorageError{Op: "placeholder", Kind: ProfilePictures, Err: err}
	}
	return nil
}

func (s *Service) randomName(ext string) (string, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate name: %w", err)
	}
	return hex.EncodeToString(buf) + ext, nil
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Extension returns the lower-cased extension of a client filename, dot included
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filepath.Base(strings.ReplaceAll(filename, "\\", "/"))))
}
