// Package client is the transport layer of the SDK: a configurable
// HTTP client built on [net/http] that authenticates every call and
// decodes API responses.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithCredentials(accessKeyID, secretAccessKey),
//		client.WithSDKVersion("0.3.0"),
//		client.WithTimeout(30 * time.Second),
//	)
//
// Every request leaving the Client carries the access key headers, a
// fresh X-Request-Id, the SDK version header and the trace context of
// the request's [context.Context].
//
// # Making Requests
//
// Construct a URL with [JoinURL] and a request with [Request], then
// execute with [Client.Do]:
//
//	u, err := client.JoinURL(endpoint, "api", "compiler", "v1alpha1", "tasks", id)
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, client.WithDestination(&task))
//
// Multipart uploads are described with a [Form]:
//
//	form := client.NewForm().
//		Text("target_ir", "enf").
//		File("source", "model.onnx", model)
//	req, err := client.Request(ctx, u, http.MethodPost, client.WithMultipart(form))
//
// Any 2xx status is a success. Every other status is decoded as an
// [APIError] body and returned as an [errs.Error] of kind KindAPI; a body
// that cannot be decoded yields KindMalformedResponse instead.
//
// # Downloading Artifacts
//
// [Client.Download] streams a response body straight to disk through
// [github.com/furiosa-ai/furiosa-client/artifact].
package client
