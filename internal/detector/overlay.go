package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	connectionColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	landmarkColor   = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

// DrawHands renders the skeleton of every hand onto img in place.
func DrawHands(img *gocv.Mat, hands []HandLandmarks) {
	if img == nil || img.Empty() {
		return
	}

	w, h := img.Cols(), img.Rows()
	for i := range hands {
		hand := &hands[i]

		for _, c := range Connections {
			x1, y1 := hand.Pixel(c[0], w, h)
			x2, y2 := hand.Pixel(c[1], w, h)
			gocv.Line(img, image.Pt(x1, y1), image.Pt(x2, y2), connectionColor, 2)
		}

		for id := 0; id < NumLandmarks; id++ {
			x, y := hand.Pixel(id, w, h)
			gocv.Circle(img, image.Pt(x, y), 4, landmarkColor, -1)
		}
	}
}
