package domain

// Annotation positions are stored in a top-left page pixel space (y grows
// downward). PDF rendering uses a bottom-left origin (y grows upward), so
// placements are mapped per annotation before drawing. The transform is pure
// and exact: no rounding beyond float64 arithmetic.

// MapToPDF converts a top-left rect origin to its bottom-left equivalent for
// a page of height pageHeight. The returned point is the lower-left corner of
// the rect, which is where PDF drawing operations anchor.
func MapToPDF(pageHeight, x, y, height Unit) (Unit, Unit) {
	return x, pageHeight - y - height
}

// MapFromPDF is the inverse of MapToPDF: it recovers the top-left origin from
// a bottom-left anchor. MapFromPDF(h, MapToPDF(h, x, y, hh)) == (x, y) within
// floating-point tolerance.
func MapFromPDF(pageHeight, x, y, height Unit) (Unit, Unit) {
	return x, pageHeight - y - height
}

// MappedRect returns the annotation's placement in PDF space for the given
// page height: lower-left corner plus size.
func (a *Annotation) MappedRect(pageHeight Unit) (x, y, w, h Unit) {
	x, y = MapToPDF(pageHeight, a.X, a.Y, a.Height)
	return x, y, a.Width, a.Height
}
