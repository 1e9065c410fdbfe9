package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// envelope is the JSON wrapper the worker relay expects: the real headers
// and body of the upstream request, with the protobuf body flattened into a
// JSON byte array.
type envelope struct {
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
}

// protoAuth carries the optional signing headers of a protobuf request.
// Session-create requests sign the body only; everything else adds the
// session secret and token.
type protoAuth struct {
	signature string
	secretKey string
	token     string
}

// sendProto POSTs/PUTs a protobuf body wrapped in the JSON envelope.
// A non-200 response returns (nil, nil): the caller treats it as "try again
// later", not a fatal error.
func (c *Client) sendProto(ctx context.Context, method, path string, body []byte, auth protoAuth) ([]byte, error) {
	headers := map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "application/x-protobuf",
		"Accept-Language": "en",
		"Content-Type":    "application/x-protobuf",
		"Pragma":          "no-cache",
		"Cache-Control":   "no-cache",
	}
	if auth.signature != "" {
		headers["Vtrans-Signature"] = auth.signature
	}
	if auth.secretKey != "" {
		headers["Sec-Vtrans-Sk"] = auth.secretKey
	}
	if auth.token != "" {
		headers["Sec-Vtrans-Token"] = auth.token
	}

	bodyArray := make([]int, len(body))
	for i, b := range body {
		bodyArray[i] = int(b)
	}
	return c.sendEnvelope(ctx, method, path, envelope{Headers: headers, Body: bodyArray})
}

// sendJSON PUTs a plain JSON body wrapped in the envelope. Used by the
// fail-audio route, which is not signed.
func (c *Client) sendJSON(ctx context.Context, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"User-Agent":   userAgent,
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	_, err = c.sendEnvelope(ctx, http.MethodPut, path, envelope{Headers: headers, Body: json.RawMessage(raw)})
	return err
}

func (c *Client) sendEnvelope(ctx context.Context, method, path string, env envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	workerURL := "https://" + c.host + path
	req, err := http.NewRequestWithContext(ctx, method, workerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	// bytes.Reader sets ContentLength, so the body goes out with a known
	// length rather than chunked encoding.
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	return io.ReadAll(resp.Body)
}
