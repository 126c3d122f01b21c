// Package export renders canvas documents to shareable files.
package export

import (
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"sharedink/internal/state"
)

// canvasUnitsPerMM maps canvas coordinates onto an A4 page.
const canvasUnitsPerMM = 3.0

// PDF writes the document's strokes to an A4 PDF at path, preserving each
// stroke's color and width.
func PDF(path string, doc state.Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	for _, st := range doc.Strokes {
		r, g, b := rgb(st.Color)
		pdf.SetDrawColor(r, g, b)
		w := st.Width / canvasUnitsPerMM
		if w < 0.2 {
			w = 0.2
		}
		pdf.SetLineWidth(w)

		for i := 1; i < len(st.Points); i++ {
			pdf.Line(
				st.Points[i-1].X/canvasUnitsPerMM, st.Points[i-1].Y/canvasUnitsPerMM,
				st.Points[i].X/canvasUnitsPerMM, st.Points[i].Y/canvasUnitsPerMM,
			)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

// rgb parses a "#rrggbb" color, defaulting to black for anything it does not
// understand.
func rgb(hex string) (int, int, int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
