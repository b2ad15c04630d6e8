package ovdino

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	// ortInit guards one time initialization of the process wide ONNX
	// Runtime environment
	ortInit    sync.Once
	ortInitErr error
)

// InitEnvironment loads the ONNX Runtime shared library and initializes the
// process wide environment.  It is called automatically by NewRuntime but can
// be called earlier to surface library load errors at startup.  Pass an empty
// libPath to use the default location for the current platform.
func InitEnvironment(libPath string) error {

	ortInit.Do(func() {
		if libPath == "" {
			libPath = defaultSharedLibPath()
		}

		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})

	return ortInitErr
}

// defaultSharedLibPath returns the ONNX Runtime shared library location used
// when no explicit path was configured
func defaultSharedLibPath() string {

	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"

	case "darwin":
		return "./third_party/onnxruntime_arm64.dylib"

	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}

		return "./third_party/onnxruntime.so"
	}
}

// TensorAttr describes a single model input or output tensor
type TensorAttr struct {
	// Name is the tensor name declared in the model graph
	Name string
	// Dims are the tensor dimensions, -1 for a dynamic axis
	Dims []int64
}

// Runtime defines an ONNX Runtime session instance for one loaded model
type Runtime struct {
	// session is the dynamic session handle
	session *ort.DynamicAdvancedSession
	// inputAttrs caches the Input tensor attributes of the Model
	inputAttrs []TensorAttr
	// outputAttrs caches the Output tensor attributes of the Model
	outputAttrs []TensorAttr
}

// NewRuntime returns a Runtime instance.  Provide the full path and filename
// of the ONNX model file to run.  threads limits the intra-op thread count of
// the session, pass 0 to use the ONNX Runtime default.
func NewRuntime(modelFile string, threads int) (*Runtime, error) {

	err := InitEnvironment("")

	if err != nil {
		return nil, fmt.Errorf("error initializing onnxruntime environment: %w", err)
	}

	// check file exists in Go, before passing to the C API
	info, err := os.Stat(modelFile)

	if err != nil {
		return nil, fmt.Errorf("model file does not exist at %s, error: %w",
			modelFile, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("model file is a directory")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelFile)

	if err != nil {
		return nil, fmt.Errorf("error querying model tensors: %w", err)
	}

	r := &Runtime{}

	inNames := make([]string, len(inputs))

	for i, in := range inputs {
		inNames[i] = in.Name
		r.inputAttrs = append(r.inputAttrs, TensorAttr{
			Name: in.Name,
			Dims: in.Dimensions,
		})
	}

	outNames := make([]string, len(outputs))

	for i, out := range outputs {
		outNames[i] = out.Name
		r.outputAttrs = append(r.outputAttrs, TensorAttr{
			Name: out.Name,
			Dims: out.Dimensions,
		})
	}

	opts, err := ort.NewSessionOptions()

	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}

	defer opts.Destroy()

	if threads > 0 {
		err = opts.SetIntraOpNumThreads(threads)

		if err != nil {
			return nil, fmt.Errorf("error setting session threads: %w", err)
		}

		err = opts.SetInterOpNumThreads(threads)

		if err != nil {
			return nil, fmt.Errorf("error setting session threads: %w", err)
		}
	}

	r.session, err = ort.NewDynamicAdvancedSession(modelFile, inNames,
		outNames, opts)

	if err != nil {
		return nil, fmt.Errorf("error creating onnxruntime session: %w", err)
	}

	return r, nil
}

// Close destroys the session releasing all C resources
func (r *Runtime) Close() error {

	if r.session == nil {
		return nil
	}

	err := r.session.Destroy()
	r.session = nil

	if err != nil {
		return fmt.Errorf("error destroying onnxruntime session: %w", err)
	}

	return nil
}

// InputAttrs returns the loaded model's input tensor attributes
func (r *Runtime) InputAttrs() []TensorAttr {
	return r.inputAttrs
}

// OutputAttrs returns the loaded model's output tensor attributes
func (r *Runtime) OutputAttrs() []TensorAttr {
	return r.outputAttrs
}

// Inference runs the model on the given input tensors which must be in the
// order of the model's declared inputs.  The returned Outputs hold memory
// allocated by ONNX Runtime and must be freed after post processing.
func (r *Runtime) Inference(inputs []ort.Value) (*Outputs, error) {

	if r.session == nil {
		return nil, fmt.Errorf("session is closed")
	}

	values := make([]ort.Value, len(r.outputAttrs))

	err := r.session.Run(inputs, values)

	if err != nil {
		return nil, fmt.Errorf("error running model: %w", err)
	}

	return &Outputs{values: values}, nil
}

// Outputs is a struct containing the output tensors of one inference call
type Outputs struct {
	values []ort.Value
	// freed is a flag to indicate if the output tensors have been released
	// from memory or not
	freed bool
	// mutex to lock access to freed variable
	sync.Mutex
}

// Float32 returns the data and dimensions of the output tensor at the given
// index, which must hold float32 elements
func (o *Outputs) Float32(idx int) ([]float32, []int64, error) {

	if idx < 0 || idx >= len(o.values) {
		return nil, nil, fmt.Errorf("output index %d out of range", idx)
	}

	tensor, ok := o.values[idx].(*ort.Tensor[float32])

	if !ok {
		return nil, nil, fmt.Errorf("output %d is not a float32 tensor", idx)
	}

	return tensor.GetData(), tensor.GetShape(), nil
}

// Int64 returns the data and dimensions of the output tensor at the given
// index, which must hold int64 elements
func (o *Outputs) Int64(idx int) ([]int64, []int64, error) {

	if idx < 0 || idx >= len(o.values) {
		return nil, nil, fmt.Errorf("output index %d out of range", idx)
	}

	tensor, ok := o.values[idx].(*ort.Tensor[int64])

	if !ok {
		return nil, nil, fmt.Errorf("output %d is not an int64 tensor", idx)
	}

	return tensor.GetData(), tensor.GetShape(), nil
}

// Free the memory buffers holding the inference outputs
func (o *Outputs) Free() error {
	o.Lock()
	defer o.Unlock()

	if o.freed {
		// memory already released
		return nil
	}

	o.freed = true

	for _, val := range o.values {
		if val == nil {
			continue
		}

		err := val.Destroy()

		if err != nil {
			return fmt.Errorf("error destroying output tensor: %w", err)
		}
	}

	return nil
}
