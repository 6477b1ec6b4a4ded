package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnnotationKind partitions annotations into text fields and signature placements
type AnnotationKind string

const (
	AnnotationKindText      AnnotationKind = "text"
	AnnotationKindSignature AnnotationKind = "signature"
)

// Unit is a coordinate or size value in page pixel space. Clients store
// positions as JSON numbers or numeric strings; both decode to Unit.
// Anything non-numeric is an InvalidAnnotation error, never a silent skip.
type Unit float64

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (u *Unit) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		s = strings.TrimSpace(s)
	}
	if s == "" || s == "null" {
		return fmt.Errorf("%w: empty numeric value", ErrInvalidAnnotation)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not numeric", ErrInvalidAnnotation, s)
	}
	*u = Unit(f)
	return nil
}

// MarshalJSON emits the plain number.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(u))
}

// ParseUnit coerces a stored string value into a Unit.
func ParseUnit(s string) (Unit, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidAnnotation, s)
	}
	return Unit(f), nil
}

// Annotation is a text field or signature placement scoped to one
// (document, recipient) pair. Page numbers are 1-based. The is_draft flag
// partitions the pair's set into the mutable working copy and the immutable
// finalized copy; writes always replace a whole partition.
type Annotation struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"document_id"`
	RecipientID string         `json:"recipient_id"`
	Kind        AnnotationKind `json:"kind"`
	Page        int            `json:"page"`
	X           Unit           `json:"x"`
	Y           Unit           `json:"y"`
	Width       Unit           `json:"width"`
	Height      Unit           `json:"height"`

	// Text fields only
	Text     string `json:"text,omitempty"`
	FontSize Unit   `json:"font_size,omitempty"`

	// Signature placements only
	ImageKey string `json:"image_key,omitempty"` // blob key of the signature image

	IsDraft   bool      `json:"is_draft"`
	Position  int       `json:"position"` // insertion order within the pair's set
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the structural invariants of an annotation.
func (a *Annotation) Validate() error {
	switch a.Kind {
	case AnnotationKindText:
		if a.FontSize <= 0 {
			return fmt.Errorf("%w: text field needs a positive font size", ErrInvalidAnnotation)
		}
	case AnnotationKindSignature:
		if a.ImageKey == "" {
			return fmt.Errorf("%w: signature placement needs an image key", ErrInvalidAnnotation)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAnnotation, a.Kind)
	}
	if a.Page < 1 {
		return fmt.Errorf("%w: page %d is not 1-based", ErrInvalidAnnotation, a.Page)
	}
	if a.Width < 0 || a.Height < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidAnnotation)
	}
	return nil
}

// TextFieldInput is the wire shape of a text field annotation.
type TextFieldInput struct {
	Page     int    `json:"page"`
	X        Unit   `json:"x"`
	Y        Unit   `json:"y"`
	Width    Unit   `json:"width"`
	Height   Unit   `json:"height"`
	Text     string `json:"text"`
	FontSize Unit   `json:"font_size"`
}

// SignatureInput is the wire shape of a signature placement.
type SignatureInput struct {
	Page     int    `json:"page"`
	X        Unit   `json:"x"`
	Y        Unit   `json:"y"`
	Width    Unit   `json:"width"`
	Height   Unit   `json:"height"`
	ImageKey string `json:"image_key"`
}

// BuildAnnotations materialises wire inputs into a pair-scoped annotation set.
// Position preserves input order: text fields first, then signatures.
func BuildAnnotations(documentID, recipientID string, fields []TextFieldInput, sigs []SignatureInput, isDraft bool) ([]*Annotation, error) {
	now := time.Now()
	anns := make([]*Annotation, 0, len(fields)+len(sigs))
	pos := 0
	for _, f := range fields {
		a := &Annotation{
			ID:          GenerateID(),
			DocumentID:  documentID,
			RecipientID: recipientID,
			Kind:        AnnotationKindText,
			Page:        f.Page,
			X:           f.X,
			Y:           f.Y,
			Width:       f.Width,
			Height:      f.Height,
			Text:        f.Text,
			FontSize:    f.FontSize,
			IsDraft:     isDraft,
			Position:    pos,
			CreatedAt:   now,
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		anns = append(anns, a)
		pos++
	}
	for _, s := range sigs {
		a := &Annotation{
			ID:          GenerateID(),
			DocumentID:  documentID,
			RecipientID: recipientID,
			Kind:        AnnotationKindSignature,
			Page:        s.Page,
			X:           s.X,
			Y:           s.Y,
			Width:       s.Width,
			Height:      s.Height,
			ImageKey:    s.ImageKey,
			IsDraft:     isDraft,
			Position:    pos,
			CreatedAt:   now,
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		anns = append(anns, a)
		pos++
	}
	return anns, nil
}
