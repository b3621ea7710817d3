package detections

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sys/cpu"
)

var runtimeMu sync.Mutex

// DefaultSharedLibraryPath returns the location of the ONNX Runtime shared
// library shipped under lib/ for the current platform.
func DefaultSharedLibraryPath() string {
	libName := "libonnxruntime.so.1.20.0"
	if runtime.GOOS == "darwin" {
		libName = "libonnxruntime.1.20.0.dylib"
	} else if runtime.GOOS == "windows" {
		libName = "onnxruntime.dll"
	}
	return filepath.Join("lib", libName)
}

// InitializeRuntime loads the ONNX Runtime shared library and creates the
// process environment. It is a no-op once the environment exists, and may be
// retried after a failure.
func InitializeRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath == "" {
		libPath = DefaultSharedLibraryPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return fmt.Errorf("onnxruntime library not found: %s: %w", libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing onnxruntime environment: %w", err)
	}
	return nil
}

func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// CPUFeatures reports the SIMD extensions ONNX Runtime can use on this host.
func CPUFeatures() map[string]bool {
	return map[string]bool{
		"sse41":  cpu.X86.HasSSE41,
		"avx2":   cpu.X86.HasAVX2,
		"avx512": cpu.X86.HasAVX512,
		"neon":   cpu.ARM64.HasASIMD,
	}
}

func intraOpThreads(configured, poolSize int) int {
	if configured > 0 {
		return configured
	}
	if poolSize <= 0 {
		poolSize = 1
	}
	return max(1, runtime.NumCPU()/poolSize)
}
