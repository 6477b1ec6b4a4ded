// Package pdf renders final annotations onto PDF artifacts using pdfcpu.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/quillflow/quillflow-core/internal/core/domain"
	"github.com/quillflow/quillflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Stamper = (*Stamper)(nil)

const defaultFontSize = 12

// Stamper implements driven.Stamper with pdfcpu watermarks. Each annotation
// is applied as an on-top watermark anchored at the page's bottom-left corner
// with an absolute offset, so placements land exactly where the client put
// them regardless of page size.
type Stamper struct {
	conf *model.Configuration
}

// NewStamper creates a stamper with relaxed PDF validation, which accepts
// the slightly malformed files real-world uploads tend to be.
func NewStamper() *Stamper {
	return &Stamper{conf: model.NewDefaultConfiguration()}
}

// Stamp renders anns onto base and returns the stamped bytes. The base slice
// is never written to; annotations referencing pages beyond the page count
// are skipped. A signature image that is neither PNG nor JPEG aborts the
// operation with domain.ErrUnsupportedImageFormat.
func (s *Stamper) Stamp(ctx context.Context, base []byte, anns []*domain.Annotation, images map[string][]byte) ([]byte, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(base), s.conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	// Page boundaries are only populated during validation; PageDims on an
	// unvalidated context panics.
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("validate pdf: %w", err)
	}

	dims, err := pdfCtx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}

	current := make([]byte, len(base))
	copy(current, base)

	for _, a := range anns {
		if a.Page < 1 || a.Page > len(dims) {
			continue
		}

		pageHeight := domain.Unit(dims[a.Page-1].Height)
		x, y := domain.MapToPDF(pageHeight, a.X, a.Y, a.Height)

		wm, err := s.watermark(a, x, y, images)
		if err != nil {
			return nil, err
		}

		var out bytes.Buffer
		err = api.AddWatermarksMap(bytes.NewReader(current), &out, map[int]*model.Watermark{a.Page: wm}, s.conf)
		if err != nil {
			return nil, fmt.Errorf("stamp page %d: %w", a.Page, err)
		}
		current = out.Bytes()
	}

	return current, nil
}

func (s *Stamper) watermark(a *domain.Annotation, x, y domain.Unit, images map[string][]byte) (*model.Watermark, error) {
	switch a.Kind {
	case domain.AnnotationKindText:
		// pdfcpu parses points as an integer.
		points := int(math.Round(float64(a.FontSize)))
		if points <= 0 {
			points = defaultFontSize
		}
		desc := fmt.Sprintf("fontname:Helvetica, points:%d, scale:1 abs, rot:0, pos:bl, off:%.2f %.2f",
			points, float64(x), float64(y))
		wm, err := api.TextWatermark(a.Text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("text watermark: %w", err)
		}
		return wm, nil

	case domain.AnnotationKindSignature:
		img, ok := images[a.ImageKey]
		if !ok {
			return nil, domain.ErrArtifactMissing
		}

		cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
		if err != nil || cfg.Width <= 0 {
			return nil, domain.ErrUnsupportedImageFormat
		}

		// Scale the image's natural pixel width down to the placement width.
		scale := float64(a.Width) / float64(cfg.Width)
		desc := fmt.Sprintf("scale:%.4f abs, rot:0, pos:bl, off:%.2f %.2f",
			scale, float64(x), float64(y))
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(img), desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("image watermark: %w", err)
		}
		return wm, nil

	default:
		return nil, fmt.Errorf("unknown annotation kind: %s", a.Kind)
	}
}
