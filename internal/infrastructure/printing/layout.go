package printing

// PaperSize names a supported output page size
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"
	PaperSizeA5     PaperSize = "A5"
	PaperSizeLetter PaperSize = "LETTER"
	PaperSizeLegal  PaperSize = "LEGAL"
)

// IsValid reports whether the paper size is supported
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeLetter, PaperSizeLegal:
		return true
	}
	return false
}

// Dimensions returns width and height in millimeters, portrait
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 216, 279
	case PaperSizeLegal:
		return 216, 356
	default:
		return 210, 297
	}
}

// Orientation is portrait or landscape
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// Margins in millimeters
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// DefaultMargins returns the margins used by the built-in templates
func DefaultMargins() Margins {
	return Margins{Top: 12, Right: 12, Bottom: 14, Left: 12}
}
