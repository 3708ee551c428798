package execprovider

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allProviders = []string{TensorRT, CUDA, ROCm, OpenCL, CoreML, CPU}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		available []string
		want      []string
	}{
		{
			name:      "auto keeps priority order of available accelerators",
			backend:   "auto",
			available: []string{CPU, CUDA, TensorRT},
			want:      []string{TensorRT, CUDA, CPU},
		},
		{
			name:      "auto without accelerators",
			backend:   "AUTO",
			available: []string{CPU},
			want:      []string{CPU},
		},
		{
			name:      "auto adds cpu when availability omits it",
			backend:   "auto",
			available: []string{CoreML},
			want:      []string{CoreML, CPU},
		},
		{
			name:      "auto never picks opencl",
			backend:   "auto",
			available: []string{OpenCL, CPU},
			want:      []string{CPU},
		},
		{
			name:      "trt alias",
			backend:   "trt",
			available: allProviders,
			want:      []string{TensorRT, CPU},
		},
		{
			name:      "tensorrt unavailable degrades to cpu",
			backend:   "tensorrt",
			available: []string{CUDA, CPU},
			want:      []string{CPU},
		},
		{
			name:      "cuda",
			backend:   " CUDA ",
			available: allProviders,
			want:      []string{CUDA, CPU},
		},
		{
			name:      "rocm",
			backend:   "rocm",
			available: []string{ROCm},
			want:      []string{ROCm, CPU},
		},
		{
			name:      "ort alias selects opencl",
			backend:   "ort",
			available: allProviders,
			want:      []string{OpenCL, CPU},
		},
		{
			name:      "apple alias selects coreml",
			backend:   "apple",
			available: allProviders,
			want:      []string{CoreML, CPU},
		},
		{
			name:      "onnx is cpu only",
			backend:   "onnx",
			available: allProviders,
			want:      []string{CPU},
		},
		{
			name:      "empty availability",
			backend:   "cuda",
			available: nil,
			want:      []string{CPU},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.backend, tt.available))
		})
	}
}

func TestSelect_AlwaysEndsWithCPUAndHasNoDuplicates(t *testing.T) {
	tokens := []string{"auto", "trt", "tensorrt", "cuda", "rocm", "opencl", "ort", "coreml", "apple", "onnx", "cpu", "", "gpu", "💥"}
	availabilities := [][]string{
		nil,
		{CPU},
		allProviders,
		{CUDA, CUDA, CPU, CPU, TensorRT},
		{CoreML, "SomethingElseExecutionProvider"},
	}

	for _, token := range tokens {
		for _, available := range availabilities {
			got := Select(token, available)

			require.NotEmpty(t, got)
			assert.Equal(t, CPU, got[len(got)-1], "token %q available %v", token, available)

			seen := make(map[string]bool)
			for _, p := range got {
				assert.False(t, seen[p], "duplicate %s for token %q", p, token)
				seen[p] = true
			}
		}
	}
}

func TestSelect_UnknownTokenIsExactlyCPU(t *testing.T) {
	for _, token := range []string{"onnx", "cpu", "", "gpu", "metal", "directml", "openvino"} {
		t.Run(token, func(t *testing.T) {
			assert.Equal(t, []string{CPU}, Select(token, allProviders))
		})
	}
}

func TestSelect_DoesNotMutateInput(t *testing.T) {
	available := []string{CPU, CUDA, TensorRT}
	_ = Select("auto", available)
	assert.Equal(t, []string{CPU, CUDA, TensorRT}, available)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"auto":     BackendAuto,
		"TRT":      BackendTensorRT,
		"TensorRT": BackendTensorRT,
		"cuda":     BackendCUDA,
		"rocm":     BackendROCm,
		"ort":      BackendOpenCL,
		"OpenCL":   BackendOpenCL,
		"apple":    BackendCoreML,
		"coreml":   BackendCoreML,
		"onnx":     BackendCPU,
		"":         BackendCPU,
	}

	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown("Auto"))
	assert.True(t, IsKnown("apple"))
	assert.True(t, IsKnown("onnx"))
	assert.True(t, IsKnown(" CPU "))
	assert.False(t, IsKnown("gpu"))
	assert.False(t, IsKnown(""))
}

func TestResolve(t *testing.T) {
	sel := Resolve("CUDA", []string{CUDA, CoreML})

	assert.Equal(t, "cuda", sel.Backend)
	assert.Equal(t, []string{CUDA, CPU}, sel.Requested)
	assert.Equal(t, []string{CPU, CUDA, CoreML}, sel.Available)
	assert.Equal(t, CUDA, sel.Active)
}

func TestResolve_ActiveNeverEmpty(t *testing.T) {
	sel := Resolve("tensorrt", nil)

	assert.Equal(t, CPU, sel.Active)
	assert.Equal(t, []string{CPU}, sel.Available)
}

func TestPrepare(t *testing.T) {
	require.NoError(t, Prepare("cuda"))

	require.NoError(t, Prepare("ort"))
	assert.Equal(t, "1", os.Getenv(openCLEnvFlag))

	// second call is a no-op
	require.NoError(t, Prepare("opencl"))
	assert.Equal(t, "1", os.Getenv(openCLEnvFlag))
}
