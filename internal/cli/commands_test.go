package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	furiosa "github.com/furiosa-ai/furiosa-client"
	"github.com/furiosa-ai/furiosa-client/credential"
	"github.com/furiosa-ai/furiosa-client/errs"
	"github.com/furiosa-ai/furiosa-client/internal/apitest"
)

// setup points the environment at srv and returns a scratch directory.
func setup(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(credential.EnvAccessKeyID, "cli-id")
	t.Setenv(credential.EnvSecretAccessKey, "cli-secret")
	t.Setenv(credential.EnvEndpoint, "")
	t.Setenv(credential.EnvPollInterval, "1ms")
	t.Setenv(credential.EnvPollTimeout, "")

	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestCompile(t *testing.T) {
	dir := setup(t)
	srv := apitest.NewServer(t, apitest.Script{
		Phases:   []string{"Running", "Succeeded"},
		Artifact: []byte("npu-binary"),
	})

	model := writeFile(t, dir, "resnet.onnx", "onnx")
	spec := writeFile(t, dir, "warboy.yaml", "npu: warboy\npes: 2\n")
	cfg := writeFile(t, dir, "config.json", `{"keep_unsignedness": true}`)
	output := filepath.Join(dir, "out.lir")

	stdout, err := execute(t, "compile", model,
		"--endpoint", srv.URL,
		"--target-spec", spec,
		"--compiler-config", cfg,
		"--target-ir", "LIR",
		"-o", output,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, output)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "npu-binary", string(got))

	form := srv.Form(apitest.RouteSubmit)
	assert.Equal(t, "lir", form.Values["target_ir"])
	assert.JSONEq(t, `{"npu":"warboy","pes":2}`, form.Values["target_npu_spec"])
	assert.JSONEq(t, `{"keep_unsignedness":true}`, form.Values["compiler_config"])
	assert.Equal(t, "resnet.onnx", form.Filenames["source"])
	assert.Equal(t, 2, srv.Hits(apitest.RouteTask))

	headers := srv.Headers(apitest.RouteSubmit)
	require.Len(t, headers, 1)
	assert.Equal(t, "cli-id", headers[0].Get("X-FuriosaAI-Access-Key-ID"))
}

func TestCompile_Failed(t *testing.T) {
	dir := setup(t)
	srv := apitest.NewServer(t, apitest.Script{
		Phases: []string{"Failed"},
		Logs:   []byte("unsupported operator: Foo"),
	})

	model := writeFile(t, dir, "m.onnx", "onnx")
	spec := writeFile(t, dir, "spec.json", `{"npu":"warboy"}`)

	_, err := execute(t, "compile", model, "--endpoint", srv.URL, "--target-spec", spec, "-o", filepath.Join(dir, "m.enf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCompilationFailed)
	assert.Equal(t, ExitCompilationFailed, ExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "m.enf"))
}

func TestCompile_InvalidTargetIR(t *testing.T) {
	dir := setup(t)
	model := writeFile(t, dir, "m.onnx", "onnx")
	spec := writeFile(t, dir, "spec.json", `{}`)

	_, err := execute(t, "compile", model, "--target-spec", spec, "--target-ir", "onnx")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestCompile_NoCredentials(t *testing.T) {
	dir := setup(t)
	t.Setenv(credential.EnvAccessKeyID, "")
	t.Setenv(credential.EnvSecretAccessKey, "")
	model := writeFile(t, dir, "m.onnx", "onnx")
	spec := writeFile(t, dir, "spec.json", `{}`)

	_, err := execute(t, "compile", model, "--target-spec", spec)
	assert.ErrorIs(t, err, errs.ErrNoCredentials)
	assert.Equal(t, ExitNoCredentials, ExitCode(err))
}

func TestQuantize(t *testing.T) {
	dir := setup(t)
	srv := apitest.NewServer(t, apitest.Script{})

	model := writeFile(t, dir, "m.onnx", "onnx")
	ranges := writeFile(t, dir, "ranges.yaml", "input: [-1.5, 2.5]\nconv.weight: [-1.5e-10, 4.337553946243133e-06]\n")
	output := filepath.Join(dir, "q.onnx")

	_, err := execute(t, "quantize", model,
		"--endpoint", srv.URL,
		"--input-tensors", "input, conv.weight",
		"--dynamic-ranges", ranges,
		"-o", output,
	)
	require.NoError(t, err)

	b, err := os.ReadFile(output)
	require.NoError(t, err)

	var echo apitest.Echo
	require.NoError(t, json.Unmarshal(b, &echo))
	assert.Equal(t, []string{"input", "conv.weight"}, echo.InputTensors)
	assert.Equal(t, map[string][2]float64{
		"input":       {-1.5, 2.5},
		"conv.weight": {-1.5e-10, 4.337553946243133e-06},
	}, echo.DynamicRanges)
}

func TestQuantize_BadRanges(t *testing.T) {
	dir := setup(t)
	model := writeFile(t, dir, "m.onnx", "onnx")
	ranges := writeFile(t, dir, "ranges.yaml", "input: [1, 2, 3]\n")

	_, err := execute(t, "quantize", model, "--input-tensors", "input", "--dynamic-ranges", ranges)
	assert.ErrorIs(t, err, errs.ErrConfigParse)
}

func TestCalibrateAndOptimize(t *testing.T) {
	dir := setup(t)
	srv := apitest.NewServer(t, apitest.Script{})
	model := writeFile(t, dir, "net.onnx", "abc")

	calibrated := filepath.Join(dir, "cal.onnx")
	_, err := execute(t, "calibrate", model, "--endpoint", srv.URL, "--input-tensors", "x", "-o", calibrated)
	require.NoError(t, err)
	assert.FileExists(t, calibrated)
	assert.Equal(t, 1, srv.Hits(apitest.RouteCalibrate))

	optimized := filepath.Join(dir, "opt.onnx")
	_, err = execute(t, "optimize", model, "--endpoint", srv.URL, "-o", optimized)
	require.NoError(t, err)

	b, err := os.ReadFile(optimized)
	require.NoError(t, err)
	var echo apitest.Echo
	require.NoError(t, json.Unmarshal(b, &echo))
	assert.Equal(t, apitest.Echo{Filename: "net.onnx", SourceSize: 3}, echo)
}

func TestVersion(t *testing.T) {
	setup(t)
	srv := apitest.NewServer(t, apitest.Script{
		Version: map[string]string{"version": "2.0.0", "git_hash": "cafe", "build_time": "today"},
	})

	stdout, err := execute(t, "version", "--endpoint", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "client: "+furiosa.Version)
	assert.Contains(t, stdout, "server: 2.0.0 (rev: cafe, built at today)")
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "resnet50.enf", defaultOutput("/models/resnet50.onnx", "enf"))
	assert.Equal(t, "model.dfg", defaultOutput("model", "dfg"))
}

func TestSplitTensors(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTensors(" a, ,b "))
	assert.Nil(t, splitTensors(""))
}
