package onnx

import (
	"errors"
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
)

const defaultEmbeddingDim = 512

var errDegenerateLandmarks = errors.New("landmarks do not define an alignment")

// recognizer runs the ArcFace embedding model on aligned 112×112 crops
type recognizer struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	dim     int
}

func newRecognizer(path string, opts *ort.SessionOptions) (*recognizer, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read recognizer io info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("recognizer has %d inputs and %d outputs, expected 1 and 1", len(inputs), len(outputs))
	}

	r := &recognizer{dim: defaultEmbeddingDim}
	if dims := outputs[0].Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		r.dim = int(dims[len(dims)-1])
	}

	r.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, alignSize, alignSize))
	if err != nil {
		return nil, fmt.Errorf("create recognizer input tensor: %w", err)
	}

	r.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(r.dim)))
	if err != nil {
		r.destroy()
		return nil, fmt.Errorf("create recognizer output tensor: %w", err)
	}

	r.session, err = ort.NewAdvancedSession(path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{r.input},
		[]ort.Value{r.output},
		opts,
	)
	if err != nil {
		r.destroy()
		return nil, fmt.Errorf("create recognizer session: %w", err)
	}

	return r, nil
}

// embed aligns the face described by kps and returns its raw embedding.
// The vector is not normalized.
func (r *recognizer) embed(img *image.NRGBA, kps [][2]float64) ([]float32, error) {
	if len(kps) != len(arcfaceTemplate) {
		return nil, fmt.Errorf("%w: got %d points", errDegenerateLandmarks, len(kps))
	}

	m := estimateSimilarity(kps, arcfaceTemplate)
	if !warpBlob(r.input.GetData(), img, m, alignSize, recMean, recStd) {
		return nil, errDegenerateLandmarks
	}

	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("run recognizer: %w", err)
	}

	embedding := make([]float32, r.dim)
	copy(embedding, r.output.GetData())
	return embedding, nil
}

func (r *recognizer) destroy() {
	if r.session != nil {
		_ = r.session.Destroy()
	}
	if r.input != nil {
		_ = r.input.Destroy()
	}
	if r.output != nil {
		_ = r.output.Destroy()
	}
}
