package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tickertalk/internal/models"

	"github.com/google/uuid"
)

// MaxImageSize is the largest upload accepted for post images and avatars.
const MaxImageSize = 10 << 20

var (
	ErrImageType     = errors.New("only jpg, jpeg, png and gif images are allowed")
	ErrImageTooLarge = errors.New("images must be 10MB or smaller")
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ImageStore keeps uploaded pictures on local disk under Dir.
type ImageStore struct {
	Dir string
}

func NewImageStore(dir string) *ImageStore {
	return &ImageStore{Dir: dir}
}

// Save validates header and writes it under a random name, which it returns.
// The extension must match the sniffed content so a renamed file is rejected.
func (s *ImageStore) Save(header *multipart.FileHeader) (string, error) {
	if header.Size > MaxImageSize {
		return "", ErrImageTooLarge
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	want, ok := imageTypes[ext]
	if !ok {
		return "", ErrImageType
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(src, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if http.DetectContentType(sniff[:n]) != want {
		return "", ErrImageType
	}

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	_, werr := io.Copy(dst, io.MultiReader(bytes.NewReader(sniff[:n]), src))
	if cerr := dst.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write image: %w", werr)
	}
	return name, nil
}

// Remove deletes a stored image; the shared default picture is never removed.
func (s *ImageStore) Remove(name string) error {
	if name == "" || name == models.DefaultPicture || name != filepath.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
