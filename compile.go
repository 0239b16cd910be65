package furiosa

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/furiosa-ai/furiosa-client/client"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// Multipart part names.
const (
	partTargetIR       = "target_ir"
	partTargetNPUSpec  = "target_npu_spec"
	partCompilerConfig = "compiler_config"
	partSource         = "source"
	partInputTensors   = "input_tensors"
	partDynamicRanges  = "dynamic_ranges"
)

// DefaultFilename names the source part when no filename is set.
const DefaultFilename = "noname"

// TargetIR is the intermediate representation a compile task produces.
type TargetIR string

// Supported target IRs.
const (
	TargetDFG  TargetIR = "dfg"
	TargetLDFG TargetIR = "ldfg"
	TargetCDFG TargetIR = "cdfg"
	TargetGIR  TargetIR = "gir"
	TargetLIR  TargetIR = "lir"
	TargetENF  TargetIR = "enf"
)

var targetIRs = []TargetIR{TargetDFG, TargetLDFG, TargetCDFG, TargetGIR, TargetLIR, TargetENF}

// ParseTargetIR parses s case-insensitively.
func ParseTargetIR(s string) (TargetIR, error) {
	lower := TargetIR(strings.ToLower(strings.TrimSpace(s)))
	for _, ir := range targetIRs {
		if ir == lower {
			return ir, nil
		}
	}

	return "", errs.New(errs.KindInvalidArgument, fmt.Sprintf("invalid target ir %q", s))
}

func (t TargetIR) String() string {
	return string(t)
}

// CompileRequest describes one compile task. The With methods return
// modified copies, so a request can serve as a template.
type CompileRequest struct {
	// TargetNPUSpec is encoded as JSON. Use json.RawMessage to send a document verbatim.
	TargetNPUSpec any
	// CompilerConfig is encoded as JSON and omitted when nil.
	CompilerConfig any
	TargetIR       TargetIR
	Filename       string
	Source         []byte
}

// NewCompileRequest returns a request targeting ENF with the default filename.
func NewCompileRequest(targetNPUSpec any, source []byte) CompileRequest {
	return CompileRequest{
		TargetNPUSpec: targetNPUSpec,
		TargetIR:      TargetENF,
		Filename:      DefaultFilename,
		Source:        source,
	}
}

// WithTargetIR returns a copy targeting ir.
func (r CompileRequest) WithTargetIR(ir TargetIR) CompileRequest {
	r.TargetIR = ir
	return r
}

// WithCompilerConfig returns a copy carrying cfg.
func (r CompileRequest) WithCompilerConfig(cfg any) CompileRequest {
	r.CompilerConfig = cfg
	return r
}

// WithFilename returns a copy with the source part named filename.
func (r CompileRequest) WithFilename(filename string) CompileRequest {
	r.Filename = filename
	return r
}

func (r CompileRequest) form() (*client.Form, error) {
	ir := r.TargetIR
	if ir == "" {
		ir = TargetENF
	}

	spec, err := json.Marshal(r.TargetNPUSpec)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidArgument, "encoding target npu spec", err)
	}

	form := client.NewForm().
		Text(partTargetIR, ir.String()).
		Text(partTargetNPUSpec, string(spec))

	if r.CompilerConfig != nil {
		cfg, err := json.Marshal(r.CompilerConfig)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidArgument, "encoding compiler config", err)
		}
		form.Text(partCompilerConfig, string(cfg))
	}

	return form.File(partSource, filenameOrDefault(r.Filename), r.Source), nil
}

func filenameOrDefault(name string) string {
	if name == "" {
		return DefaultFilename
	}
	return name
}
