package onnx

import (
	"fmt"
	"image"
	"sort"
)

const (
	detMean = 127.5
	detStd  = 128.0
)

// headLayout describes how the detector groups its output tensors: one
// score, one box and (optionally) one keypoint tensor per stride.
type headLayout struct {
	strides    []int
	numAnchors int
	hasKps     bool
}

// layoutFor derives the head layout from the number of model outputs
func layoutFor(outputs int) (headLayout, error) {
	switch outputs {
	case 6:
		return headLayout{strides: []int{8, 16, 32}, numAnchors: 2}, nil
	case 9:
		return headLayout{strides: []int{8, 16, 32}, numAnchors: 2, hasKps: true}, nil
	case 10:
		return headLayout{strides: []int{8, 16, 32, 64, 128}, numAnchors: 1}, nil
	case 15:
		return headLayout{strides: []int{8, 16, 32, 64, 128}, numAnchors: 1, hasKps: true}, nil
	default:
		return headLayout{}, fmt.Errorf("unsupported detector: %d outputs", outputs)
	}
}

// anchorsFor returns the number of anchor rows produced at a stride
func (l headLayout) anchorsFor(size, stride int) int {
	grid := size / stride
	return grid * grid * l.numAnchors
}

// letterbox holds the resize applied before detection
type letterbox struct {
	width, height int
	scale         float64
}

// computeLetterbox keeps the aspect ratio and fits the image into a
// size×size square anchored at the top-left corner.
func computeLetterbox(srcW, srcH, size int) letterbox {
	ratio := float64(srcH) / float64(srcW)

	var w, h int
	if ratio > 1 {
		h = size
		w = int(float64(h) / ratio)
	} else {
		w = size
		h = int(float64(w) * ratio)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return letterbox{width: w, height: h, scale: float64(h) / float64(srcH)}
}

// fillDetectionBlob writes img into dst as a planar RGB tensor of
// size×size, normalized to (p-127.5)/128. Pixels outside img are zero
// before normalization.
func fillDetectionBlob(dst []float32, img *image.NRGBA, size int) {
	plane := size * size
	pad := float32((0 - detMean) / detStd)
	for i := range dst[:3*plane] {
		dst[i] = pad
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > size {
		w = size
	}
	if h > size {
		h = size
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			i := y*size + x
			dst[i] = (float32(p[0]) - detMean) / detStd
			dst[plane+i] = (float32(p[1]) - detMean) / detStd
			dst[2*plane+i] = (float32(p[2]) - detMean) / detStd
		}
	}
}

// candidate is a decoded detection before suppression
type candidate struct {
	box   [4]float64
	score float64
	kps   [][2]float64
}

// decodeStride turns one stride's raw head outputs into candidates above
// threshold. Anchor centres run row-major over the grid with numAnchors
// consecutive rows per cell.
func decodeStride(scores, boxes, kps []float32, size, stride, numAnchors int, threshold float64) []candidate {
	grid := size / stride
	var out []candidate

	for idx, s := range scores {
		score := float64(s)
		if score < threshold {
			continue
		}

		cell := idx / numAnchors
		cx := float64((cell % grid) * stride)
		cy := float64((cell / grid) * stride)
		st := float64(stride)

		d := boxes[idx*4 : idx*4+4]
		c := candidate{
			box: [4]float64{
				cx - float64(d[0])*st,
				cy - float64(d[1])*st,
				cx + float64(d[2])*st,
				cy + float64(d[3])*st,
			},
			score: score,
		}

		if kps != nil {
			k := kps[idx*10 : idx*10+10]
			c.kps = make([][2]float64, 5)
			for p := 0; p < 5; p++ {
				c.kps[p] = [2]float64{
					cx + float64(k[2*p])*st,
					cy + float64(k[2*p+1])*st,
				}
			}
		}

		out = append(out, c)
	}

	return out
}

// rescale maps candidates from letterboxed coordinates back to the source
func rescale(cands []candidate, scale float64) {
	for i := range cands {
		for j := range cands[i].box {
			cands[i].box[j] /= scale
		}
		for j := range cands[i].kps {
			cands[i].kps[j][0] /= scale
			cands[i].kps[j][1] /= scale
		}
	}
}

// nms sorts by score descending and greedily drops boxes overlapping a
// kept one by more than threshold. Areas use the inclusive +1 pixel
// convention.
func nms(cands []candidate, threshold float64) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	area := func(b [4]float64) float64 {
		return (b[2] - b[0] + 1) * (b[3] - b[1] + 1)
	}

	suppressed := make([]bool, len(cands))
	kept := make([]candidate, 0, len(cands))

	for i := range cands {
		if suppressed[i] {
			continue
		}
		kept = append(kept, cands[i])
		a := cands[i].box

		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] {
				continue
			}
			b := cands[j].box
			w := max(0, min(a[2], b[2])-max(a[0], b[0])+1)
			h := max(0, min(a[3], b[3])-max(a[1], b[1])+1)
			inter := w * h
			if inter/(area(a)+area(b)-inter) > threshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}
