// Package execprovider decides which ONNX Runtime execution providers the
// analyzer asks for, given a configured backend token and what the host offers.
package execprovider

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// ONNX Runtime execution provider identifiers.
const (
	TensorRT = "TensorrtExecutionProvider"
	CUDA     = "CUDAExecutionProvider"
	ROCm     = "ROCMExecutionProvider"
	OpenCL   = "OpenCLExecutionProvider"
	CoreML   = "CoreMLExecutionProvider"
	CPU      = "CPUExecutionProvider"
)

// Backend tokens accepted in INFERENCE_BACKEND after normalization.
const (
	BackendAuto     = "auto"
	BackendTensorRT = "tensorrt"
	BackendCUDA     = "cuda"
	BackendROCm     = "rocm"
	BackendOpenCL   = "opencl"
	BackendCoreML   = "coreml"
	BackendCPU      = "cpu"
)

// openCLEnvFlag must be set before the OpenCL provider is created.
const openCLEnvFlag = "USE_OPENCL"

// autoPriority is walked in order for the "auto" backend. OpenCL is left out:
// it needs a process-wide flag and is only used when asked for by name.
var autoPriority = []string{TensorRT, CUDA, ROCm, CoreML, CPU}

var aliases = map[string]string{
	"auto":     BackendAuto,
	"trt":      BackendTensorRT,
	"tensorrt": BackendTensorRT,
	"cuda":     BackendCUDA,
	"rocm":     BackendROCm,
	"opencl":   BackendOpenCL,
	"ort":      BackendOpenCL,
	"coreml":   BackendCoreML,
	"apple":    BackendCoreML,
	"cpu":      BackendCPU,
	"onnx":     BackendCPU,
}

var accelerators = map[string]string{
	BackendTensorRT: TensorRT,
	BackendCUDA:     CUDA,
	BackendROCm:     ROCm,
	BackendOpenCL:   OpenCL,
	BackendCoreML:   CoreML,
}

// Normalize maps a backend token onto its canonical form. "onnx", "cpu" and
// anything outside the vocabulary become BackendCPU.
func Normalize(token string) string {
	if canonical, ok := aliases[strings.ToLower(strings.TrimSpace(token))]; ok {
		return canonical
	}
	return BackendCPU
}

// IsKnown reports whether token is part of the backend vocabulary. The
// explicit CPU tokens "cpu" and "onnx" are known.
func IsKnown(token string) bool {
	_, ok := aliases[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// Select returns the ordered providers to request from the runtime.
// The result always ends with CPU and never contains duplicates. A requested
// accelerator that is not available is dropped silently.
func Select(requestedBackend string, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, p := range available {
		have[p] = true
	}

	var candidates []string
	backend := Normalize(requestedBackend)
	switch backend {
	case BackendAuto:
		for _, p := range autoPriority {
			if have[p] {
				candidates = append(candidates, p)
			}
		}
	case BackendCPU:
	default:
		if p := accelerators[backend]; have[p] {
			candidates = append(candidates, p)
		}
	}

	return withFallback(candidates)
}

// withFallback deduplicates preserving first-seen order and pins CPU last.
func withFallback(providers []string) []string {
	seen := make(map[string]bool, len(providers)+1)
	out := make([]string, 0, len(providers)+1)
	for _, p := range providers {
		if p == CPU || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return append(out, CPU)
}

// Selection is the outcome of provider selection, reported by GET /info.
type Selection struct {
	Backend   string   `json:"backend"`
	Requested []string `json:"requested_providers"`
	Available []string `json:"available_providers"`
	Active    string   `json:"active_provider"`
}

// Resolve runs Select and records the inputs next to the outcome.
func Resolve(requestedBackend string, available []string) Selection {
	requested := Select(requestedBackend, available)

	avail := withFallback(available)
	sort.Strings(avail)

	return Selection{
		Backend:   strings.ToLower(strings.TrimSpace(requestedBackend)),
		Requested: requested,
		Available: avail,
		Active:    requested[0],
	}
}

var openCLOnce sync.Once

// Prepare applies process-level preconditions for the requested backend.
// Only OpenCL has one; it is applied at most once per process.
func Prepare(requestedBackend string) error {
	if Normalize(requestedBackend) != BackendOpenCL {
		return nil
	}

	var err error
	openCLOnce.Do(func() {
		err = os.Setenv(openCLEnvFlag, "1")
	})
	return err
}
