package onnx

import (
	"image"
	"math"
)

const (
	alignSize = 112
	recMean   = 127.5
	recStd    = 127.5
)

// arcfaceTemplate is the canonical 5-point layout for a 112×112 crop:
// left eye, right eye, nose, left mouth corner, right mouth corner.
var arcfaceTemplate = [5][2]float64{
	{38.2946, 51.6963},
	{73.5318, 51.5014},
	{56.0252, 71.7366},
	{41.5493, 92.3655},
	{70.7299, 92.2041},
}

// affine is a 2×3 matrix [a b tx; c d ty]
type affine [6]float64

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// invert returns the inverse transform; ok is false for singular matrices
func (m affine) invert() (affine, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if math.Abs(det) < 1e-12 {
		return affine{}, false
	}
	a, b, c, d := m[4]/det, -m[1]/det, -m[3]/det, m[0]/det
	return affine{
		a, b, -(a*m[2] + b*m[5]),
		c, d, -(c*m[2] + d*m[5]),
	}, true
}

// estimateSimilarity fits the least-squares similarity transform
// (rotation, uniform scale, translation) that maps src onto dst.
func estimateSimilarity(src [][2]float64, dst [5][2]float64) affine {
	n := float64(len(src))
	var smx, smy, dmx, dmy float64
	for i := range src {
		smx += src[i][0]
		smy += src[i][1]
		dmx += dst[i][0]
		dmy += dst[i][1]
	}
	smx, smy, dmx, dmy = smx/n, smy/n, dmx/n, dmy/n

	var num, cross, variance float64
	for i := range src {
		sx, sy := src[i][0]-smx, src[i][1]-smy
		dx, dy := dst[i][0]-dmx, dst[i][1]-dmy
		num += sx*dx + sy*dy
		cross += sx*dy - sy*dx
		variance += sx*sx + sy*sy
	}
	if variance == 0 {
		return affine{1, 0, dmx - smx, 0, 1, dmy - smy}
	}

	a := num / variance
	b := cross / variance

	return affine{
		a, -b, dmx - (a*smx - b*smy),
		b, a, dmy - (b*smx + a*smy),
	}
}

// warpBlob samples src through m into a planar RGB size×size tensor,
// normalized to (p-mean)/std. m maps source pixels to output pixels.
// Samples falling outside src read as zero.
func warpBlob(dst []float32, src *image.NRGBA, m affine, size int, mean, std float32) bool {
	inv, ok := m.invert()
	if !ok {
		return false
	}

	plane := size * size
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	pixel := func(x, y int) (float64, float64, float64) {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0, 0, 0
		}
		p := src.Pix[y*src.Stride+x*4:]
		return float64(p[0]), float64(p[1]), float64(p[2])
	}

	for oy := 0; oy < size; oy++ {
		for ox := 0; ox < size; ox++ {
			sx, sy := inv.apply(float64(ox), float64(oy))
			x0, y0 := int(math.Floor(sx)), int(math.Floor(sy))
			fx, fy := sx-float64(x0), sy-float64(y0)

			r00, g00, b00 := pixel(x0, y0)
			r10, g10, b10 := pixel(x0+1, y0)
			r01, g01, b01 := pixel(x0, y0+1)
			r11, g11, b11 := pixel(x0+1, y0+1)

			w00 := (1 - fx) * (1 - fy)
			w10 := fx * (1 - fy)
			w01 := (1 - fx) * fy
			w11 := fx * fy

			i := oy*size + ox
			dst[i] = (float32(r00*w00+r10*w10+r01*w01+r11*w11) - mean) / std
			dst[plane+i] = (float32(g00*w00+g10*w10+g01*w01+g11*w11) - mean) / std
			dst[2*plane+i] = (float32(b00*w00+b10*w10+b01*w01+b11*w11) - mean) / std
		}
	}

	return true
}
