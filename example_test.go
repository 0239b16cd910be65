package furiosa_test

import (
	"encoding/json"
	"fmt"

	furiosa "github.com/furiosa-ai/furiosa-client"
)

func ExampleParseTargetIR() {
	ir, err := furiosa.ParseTargetIR("LDFG")
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(ir)
	// Output: ldfg
}

func ExampleNewCompileRequest() {
	spec := json.RawMessage(`{"npu":"warboy"}`)

	req := furiosa.NewCompileRequest(spec, []byte("onnx")).
		WithTargetIR(furiosa.TargetGIR).
		WithFilename("resnet50.onnx")

	fmt.Println(req.TargetIR, req.Filename)
	// Output: gir resnet50.onnx
}

func ExampleDynamicRange() {
	ranges := map[string]furiosa.DynamicRange{
		"input": {Min: -1, Max: 1},
	}

	b, err := json.Marshal(ranges)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(string(b))
	// Output: {"input":[-1,1]}
}

func ExampleUserAgent() {
	fmt.Println(furiosa.UserAgent("0.3.0"))
	// Output: FuriosaAI Go Client (ver.0.3.0)
}
