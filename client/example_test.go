package client_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/furiosa-ai/furiosa-client/client"
	"github.com/furiosa-ai/furiosa-client/client/retry"
)

func ExampleBuild() {
	c, err := client.Build(
		client.WithCredentials("access-key-id", "secret-access-key"),
		client.WithSDKVersion("0.3.0"),
		client.WithTimeout(10*time.Second),
		client.WithRetry(retry.DefaultConfig()),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = c
	fmt.Println("client built")
	// Output: client built
}

func ExampleJoinURL() {
	u, err := client.JoinURL("https://api.furiosa.ai", "api", "compiler", "v1alpha1", "tasks", "1234")
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(u.String())
	// Output: https://api.furiosa.ai/api/compiler/v1alpha1/tasks/1234
}

func ExampleClient_Do() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"task_id":"abc","phase":"Running"}`)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	u, err := client.JoinURL(ts.URL, "api", "compiler", "v1alpha1", "tasks", "abc")
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	req, err := c.Request(context.Background(), u, http.MethodGet)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	var task struct {
		TaskID string `json:"task_id"`
		Phase  string `json:"phase"`
	}
	if err := c.Do(req, client.WithDestination(&task)); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(task.TaskID, task.Phase)
	// Output: abc Running
}

func ExampleClient_Do_apiError() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error_code":"INVALID_SPEC","message":"unknown npu"}`)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	u, err := client.JoinURL(ts.URL)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	req, err := c.Request(context.Background(), u, http.MethodGet)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(c.Do(req))
	// Output: api error (HTTP 400, INVALID_SPEC): unknown npu
}

func ExampleNewForm() {
	form := client.NewForm().
		Text("target_ir", "enf").
		File("source", "model.onnx", []byte("onnx"))

	fmt.Println(form.Len())
	// Output: 2
}
