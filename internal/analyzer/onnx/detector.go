package onnx

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// detector runs the SCRFD face detector on a fixed square input
type detector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	outputs   []*ort.Tensor[float32]
	layout    headLayout
	size      int
	threshold float64
	nmsThresh float64
}

func newDetector(path string, size int, threshold, nmsThresh float64, opts *ort.SessionOptions) (*detector, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read detector io info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("detector has %d inputs, expected 1", len(inputs))
	}

	layout, err := layoutFor(len(outputs))
	if err != nil {
		return nil, err
	}

	d := &detector{
		layout:    layout,
		size:      size,
		threshold: threshold,
		nmsThresh: nmsThresh,
	}

	d.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("create detector input tensor: %w", err)
	}

	widths := []int64{1, 4, 10}
	names := make([]string, len(outputs))
	values := make([]ort.Value, len(outputs))
	fmc := len(layout.strides)

	for i, info := range outputs {
		names[i] = info.Name
		stride := layout.strides[i%fmc]
		rows := int64(layout.anchorsFor(size, stride))
		width := widths[i/fmc]

		shape := ort.NewShape(rows, width)
		if len(info.Dimensions) == 3 {
			shape = ort.NewShape(1, rows, width)
		}

		t, err := ort.NewEmptyTensor[float32](shape)
		if err != nil {
			d.destroy()
			return nil, fmt.Errorf("create detector output %s: %w", info.Name, err)
		}
		d.outputs = append(d.outputs, t)
		values[i] = t
	}

	d.session, err = ort.NewAdvancedSession(path,
		[]string{inputs[0].Name},
		names,
		[]ort.Value{d.input},
		values,
		opts,
	)
	if err != nil {
		d.destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return d, nil
}

// detect returns suppressed detections in source pixel coordinates,
// highest score first.
func (d *detector) detect(img *image.NRGBA) ([]candidate, error) {
	b := img.Bounds()
	lb := computeLetterbox(b.Dx(), b.Dy(), d.size)

	resized := imaging.Resize(img, lb.width, lb.height, imaging.Linear)
	fillDetectionBlob(d.input.GetData(), resized, d.size)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detector: %w", err)
	}

	fmc := len(d.layout.strides)
	var cands []candidate
	for i, stride := range d.layout.strides {
		var kps []float32
		if d.layout.hasKps {
			kps = d.outputs[i+2*fmc].GetData()
		}
		cands = append(cands, decodeStride(
			d.outputs[i].GetData(),
			d.outputs[i+fmc].GetData(),
			kps,
			d.size, stride, d.layout.numAnchors, d.threshold,
		)...)
	}

	rescale(cands, lb.scale)
	return nms(cands, d.nmsThresh), nil
}

func (d *detector) destroy() {
	if d.session != nil {
		_ = d.session.Destroy()
	}
	if d.input != nil {
		_ = d.input.Destroy()
	}
	for _, t := range d.outputs {
		_ = t.Destroy()
	}
}
