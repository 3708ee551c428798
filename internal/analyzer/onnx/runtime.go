package onnx

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
)

var (
	initOnce sync.Once
	initErr  error
)

var errProviderUnsupported = errors.New("execution provider not supported by onnxruntime bindings")

// InitRuntime loads the ONNX Runtime shared library and creates the global
// environment. Later calls return the result of the first one.
func InitRuntime(libPath string) error {
	initOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("initialize onnxruntime: %w", err)
		}
	})
	return initErr
}

// acceleratorOrder lists every accelerator the selector knows about
var acceleratorOrder = []string{
	execprovider.TensorRT,
	execprovider.CUDA,
	execprovider.ROCm,
	execprovider.OpenCL,
	execprovider.CoreML,
}

// SupportedProviders reports which execution providers this runtime build accepts.
// A provider counts as available when it can be appended to a session
// options object. CPU is always included.
func SupportedProviders() []string {
	available := make([]string, 0, len(acceleratorOrder)+1)
	for _, name := range acceleratorOrder {
		opts, err := ort.NewSessionOptions()
		if err != nil {
			break
		}
		if appendProvider(opts, name) == nil {
			available = append(available, name)
		}
		_ = opts.Destroy()
	}
	return append(available, execprovider.CPU)
}

func appendProvider(opts *ort.SessionOptions, name string) error {
	switch name {
	case execprovider.TensorRT:
		trt, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return err
		}
		defer func() { _ = trt.Destroy() }()
		return opts.AppendExecutionProviderTensorRT(trt)
	case execprovider.CUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer func() { _ = cuda.Destroy() }()
		return opts.AppendExecutionProviderCUDA(cuda)
	case execprovider.CoreML:
		return opts.AppendExecutionProviderCoreML(0)
	case execprovider.CPU:
		return nil
	default:
		// ROCm and OpenCL have no append call in the Go bindings
		return fmt.Errorf("%w: %s", errProviderUnsupported, name)
	}
}

// newSessionOptions builds options that register providers in preference
// order. Providers that fail to register are skipped; the returned list
// holds the ones that were applied.
func newSessionOptions(preference []string) (*ort.SessionOptions, []string, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, nil, fmt.Errorf("create session options: %w", err)
	}

	if err := opts.SetIntraOpNumThreads(runtime.NumCPU()); err != nil {
		_ = opts.Destroy()
		return nil, nil, fmt.Errorf("set intra-op threads: %w", err)
	}

	applied := make([]string, 0, len(preference))
	for _, name := range preference {
		if err := appendProvider(opts, name); err != nil {
			continue
		}
		applied = append(applied, name)
	}
	if len(applied) == 0 || applied[len(applied)-1] != execprovider.CPU {
		applied = append(applied, execprovider.CPU)
	}

	return opts, applied, nil
}
