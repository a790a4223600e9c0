// Package uploads stores user supplied images on local disk next to a
// resized thumbnail and maps them to public URLs.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

// FormField is the multipart field carrying an image.
const FormField = "image"

const thumbnailPrefix = "thumb_"

var mimeByExtension = map[string][]string{
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
}

type Options struct {
	Dir               string
	PublicPath        string
	MaxBytes          int64
	AllowedExtensions []string
	ThumbnailWidth    int
}

// Stored describes a saved image and its thumbnail.
type Stored struct {
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}

type Store struct {
	opts    Options
	allowed map[string]struct{}
	logg    *logger.Logger
}

func NewStore(opts Options, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("uploads dir required")
	}
	if opts.PublicPath == "" {
		opts.PublicPath = "/uploads"
	}
	opts.PublicPath = "/" + strings.Trim(opts.PublicPath, "/")
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 << 20
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 300
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = []string{"jpg", "jpeg", "png", "gif"}
	}
	allowed := make(map[string]struct{}, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if _, known := mimeByExtension[ext]; !known {
			return nil, fmt.Errorf("unsupported upload extension %q", ext)
		}
		allowed[ext] = struct{}{}
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{opts: opts, allowed: allowed, logg: logg}, nil
}

// Dir returns the directory served under PublicPath.
func (s *Store) Dir() string {
	return s.opts.Dir
}

func (s *Store) PublicPath() string {
	return s.opts.PublicPath
}

// MaxBytes is the largest accepted image.
func (s *Store) MaxBytes() int64 {
	return s.opts.MaxBytes
}

// FromRequest saves the image in the request's multipart form. It returns
// nil when the form carries no image. The form must already be parsed.
func (s *Store) FromRequest(ctx context.Context, r *http.Request) (*Stored, error) {
	file, header, err := r.FormFile(FormField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded image")
	}
	defer file.Close()
	return s.Save(ctx, header.Filename, file)
}

// Save validates and stores an image read from src. The extension of name
// must be allowed and agree with the sniffed content type.
func (s *Store) Save(ctx context.Context, name string, src io.Reader) (*Stored, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := s.allowed[ext]; !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file type .%s is not allowed", ext).
			WithDetails(map[string]any{"allowed": s.opts.AllowedExtensions})
	}

	data, err := io.ReadAll(io.LimitReader(src, s.opts.MaxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "image exceeds %d bytes", s.opts.MaxBytes)
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is empty")
	}

	detected := mimetype.Detect(data)
	if !detected.Is(mimeByExtension[ext][0]) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "content %s does not match .%s", detected.String(), ext)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode image")
	}

	base := uuid.NewString() + "." + ext
	originalPath := filepath.Join(s.opts.Dir, base)
	thumbPath := filepath.Join(s.opts.Dir, thumbnailPrefix+base)
	if err := os.WriteFile(originalPath, data, 0o644); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write image")
	}
	thumb := img
	if img.Bounds().Dx() > s.opts.ThumbnailWidth {
		thumb = imaging.Resize(img, s.opts.ThumbnailWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(thumb, thumbPath); err != nil {
		err = multierr.Append(err, os.Remove(originalPath))
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write thumbnail")
	}

	stored := &Stored{
		ImageURL:     path.Join(s.opts.PublicPath, base),
		ThumbnailURL: path.Join(s.opts.PublicPath, thumbnailPrefix+base),
		MimeType:     detected.String(),
		Size:         int64(len(data)),
	}
	s.logg.Debug(s.logg.WithField(ctx, "image_url", stored.ImageURL), "image stored")
	return stored, nil
}

// Remove deletes the files behind the given public URLs. Unknown or empty
// URLs are ignored.
func (s *Store) Remove(urls ...*string) error {
	var errs error
	for _, u := range urls {
		if u == nil || *u == "" {
			continue
		}
		name := path.Base(*u)
		if !strings.HasPrefix(*u, s.opts.PublicPath+"/") || name == "." || name == "/" {
			continue
		}
		if err := os.Remove(filepath.Join(s.opts.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
