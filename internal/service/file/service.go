package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxPhotoBytes    = 10 << 20
	targetPhotoBytes = 300 * 1024
	minPhotoWidth    = 800
	uploadTimeout    = 10 * time.Second
)

var ErrUnsupportedPhoto = apperr.New(apperr.KindValidation, "only jpg, jpeg and png photos are accepted")

type FileService interface {
	// StorePhotos stores every upload under the ticket. A photo that cannot be
	// stored is returned as a metadata-only reference and its error is joined
	// into the returned error.
	StorePhotos(ctx context.Context, ticketID string, photos []ticket.PhotoUpload) ([]ticket.PhotoRef, error)

	DeleteFile(ctx context.Context, key string) error
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

// StorePhotos implements FileService.
func (s *fileServiceImpl) StorePhotos(ctx context.Context, ticketID string, photos []ticket.PhotoUpload) ([]ticket.PhotoRef, error) {
	refs := make([]ticket.PhotoRef, 0, len(photos))
	var errs []error

	for _, p := range photos {
		ref, err := s.storePhoto(ctx, ticketID, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("photo %q: %w", p.Filename, err))
			ref = ticket.PhotoRef{
				Name:        p.Filename,
				Size:        p.Size,
				ContentType: p.ContentType,
				Stored:      false,
			}
		}
		refs = append(refs, ref)
	}

	if len(errs) > 0 {
		return refs, apperr.Wrap(apperr.KindExternalDegraded, "failed to store photos", errors.Join(errs...))
	}
	return refs, nil
}

func (s *fileServiceImpl) storePhoto(ctx context.Context, ticketID string, p ticket.PhotoUpload) (ticket.PhotoRef, error) {
	if p.Content == nil {
		return ticket.PhotoRef{}, errors.New("photo has no content")
	}
	if !isSupportedPhoto(p.Filename, p.ContentType) {
		return ticket.PhotoRef{}, ErrUnsupportedPhoto
	}

	buffer, err := io.ReadAll(io.LimitReader(p.Content, maxPhotoBytes+1))
	if err != nil {
		return ticket.PhotoRef{}, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(buffer) > maxPhotoBytes {
		return ticket.PhotoRef{}, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}

	compressed, err := compressImage(buffer, targetPhotoBytes)
	if err != nil {
		return ticket.PhotoRef{}, err
	}

	key := path.Join("tickets", ticketID, uuid.NewString()+".jpg")

	uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	stored, err := s.storage.Upload(uploadCtx, bytes.NewReader(compressed), key, "image/jpeg")
	if err != nil {
		return ticket.PhotoRef{}, fmt.Errorf("failed to upload photo: %w", err)
	}

	return ticket.PhotoRef{
		ID:          stored,
		URL:         s.storage.URL(stored),
		Name:        p.Filename,
		Size:        int64(len(compressed)),
		ContentType: "image/jpeg",
		Stored:      true,
	}, nil
}

// DeleteFile implements FileService.
func (s *fileServiceImpl) DeleteFile(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func isSupportedPhoto(filename, contentType string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/png":
		return true
	}
	return false
}

// ==================== HELPER FUNCTIONS ====================

// compressImage re-encodes the image as JPEG, lowering quality and then the
// resolution until it fits maxSize.
func compressImage(buffer []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var compressed []byte
	for quality := 85; quality >= 55; quality -= 10 {
		compressed, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(compressed) <= maxSize {
			return compressed, nil
		}
	}

	bounds := img.Bounds()
	ratio := math.Sqrt(float64(maxSize) / float64(len(compressed)))
	width := int(float64(bounds.Dx()) * ratio)
	if width < minPhotoWidth {
		width = minPhotoWidth
	}
	if width >= bounds.Dx() {
		return compressed, nil
	}
	height := bounds.Dy() * width / bounds.Dx()

	return encodeJPEG(resizeImage(img, width, height), 70)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage scales src with CatmullRom interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
