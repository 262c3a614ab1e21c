package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/nekogravitycat/room-booking-backend/internal/booking"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
)

const quietZone = 4 // modules of white border required around a QR symbol

// Attacher records the stored pass location on the reservation.
type Attacher interface {
	AttachArtifact(ctx context.Context, reservationID, path string) error
}

type Options struct {
	// Size is the edge length of the PNG in pixels.
	Size          int
	PublicBaseURL string
}

// Service turns committed events into stored booking passes. It implements
// booking.Notifier so it can run inline or behind the event consumer.
type Service struct {
	store    storage.Storage
	images   *storage.ImageProcessor
	attacher Attacher
	opts     Options
	logger   *slog.Logger
}

func NewService(store storage.Storage, attacher Attacher, opts Options, logger *slog.Logger) *Service {
	if opts.Size < 64 {
		opts.Size = 300
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		images:   storage.NewImageProcessor(),
		attacher: attacher,
		opts:     opts,
		logger:   logger,
	}
}

// Notify renders, stores and attaches the pass for evt. Rendering the same
// event twice overwrites the same file, so redelivery is harmless.
func (s *Service) Notify(ctx context.Context, evt booking.CommittedEvent) error {
	png, err := s.Render(NewPayload(evt, s.opts.PublicBaseURL))
	if err != nil {
		return fmt.Errorf("render pass for %s: %w", evt.ReferenceCode, err)
	}

	p := PathFor(evt)
	if err := s.store.Save(ctx, p, png); err != nil {
		return fmt.Errorf("store pass for %s: %w", evt.ReferenceCode, err)
	}
	if err := s.attacher.AttachArtifact(ctx, evt.ReservationID, p); err != nil {
		return fmt.Errorf("attach pass for %s: %w", evt.ReferenceCode, err)
	}

	s.logger.InfoContext(ctx, "booking pass generated",
		"reservation_id", evt.ReservationID,
		"reference", evt.ReferenceCode,
		"path", p)
	return nil
}

// Render encodes payload as a framed PNG QR code.
func (s *Service) Render(payload Payload) (io.Reader, error) {
	content, err := payload.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("build qr code: %w", err)
	}
	qr.DisableBorder = true

	modules := len(qr.Bitmap())
	// Pixel-per-module scaling needs the symbol plus quiet zone to fit.
	margin := s.opts.Size * quietZone / (modules + 2*quietZone)
	return s.images.FramePNG(qr.Image(s.opts.Size), s.opts.Size, margin)
}

// PathFor returns the storage path of evt's pass, grouped by booking date.
func PathFor(evt booking.CommittedEvent) string {
	return path.Join("passes", evt.Date, evt.ReferenceCode+".png")
}
