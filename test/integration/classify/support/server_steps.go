package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/MeKo-Tech/soilsense/internal/server"
	"github.com/cucumber/godog"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(server.Config{})
}

func (testCtx *TestContext) theServerIsRunningWithALimitOfRequestsPerMinute(n int) error {
	return testCtx.startServer(server.Config{
		RateLimit: server.RateLimitConfig{Enabled: true, RequestsPerMinute: n},
	})
}

func (testCtx *TestContext) startServer(cfg server.Config) error {
	if testCtx.HTTPServer != nil {
		return errors.New("server already running")
	}
	pl, err := testCtx.EnsurePipeline()
	if err != nil {
		return err
	}
	cfg.MaxUploadMB = 1
	cfg.TimeoutSec = 5

	srv := server.NewServerWithPipeline(cfg, pl)
	// The server now owns the pipeline.
	testCtx.Pipeline = nil

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPServer = &HTTPTestServerWrapper{Server: httptest.NewServer(mux), TestServer: srv}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	if testCtx.HTTPServer == nil {
		return
	}
	testCtx.HTTPServer.Server.Close()
	_ = testCtx.HTTPServer.TestServer.Close()
	testCtx.HTTPServer = nil
}

func (testCtx *TestContext) serverURL() (string, error) {
	if testCtx.HTTPServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPServer.Server.URL, nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) upload(filename string, data []byte) error {
	base, err := testCtx.serverURL()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, base+"/classify", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadASoilPhotoAs(filename string) error {
	format := strings.TrimPrefix(strings.ToLower(filenameExt(filename)), ".")
	data, err := encodeSoilPhoto(format)
	if err != nil {
		return err
	}
	return testCtx.upload(filename, data)
}

func (testCtx *TestContext) iUploadTheBytesAs(text, filename string) error {
	return testCtx.upload(filename, []byte(text))
}

func (testCtx *TestContext) iUploadBytesOfNoiseAs(n int, filename string) error {
	return testCtx.upload(filename, bytes.Repeat([]byte{0xA5}, n))
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	base, err := testCtx.serverURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected HTTP %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("expected response to contain %q, got %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != value {
		return fmt.Errorf("expected header %s=%q, got %q", name, value, got)
	}
	return nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(path, want string) error {
	var doc interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &doc); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	cur := doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field %q is not an object", key)
		}
		if cur, ok = m[key]; !ok {
			return fmt.Errorf("field %q not found in %s", path, testCtx.LastHTTPResponse)
		}
	}
	if got := fmt.Sprint(cur); got != want {
		return fmt.Errorf("expected %s=%q, got %q", path, want, got)
	}
	return nil
}

func filenameExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// RegisterServerSteps registers HTTP steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithALimitOfRequestsPerMinute)
	sc.Step(`^I upload a soil photo as "([^"]*)"$`, testCtx.iUploadASoilPhotoAs)
	sc.Step(`^I upload the bytes "([^"]*)" as "([^"]*)"$`, testCtx.iUploadTheBytesAs)
	sc.Step(`^I upload (\d+) bytes of noise as "([^"]*)"$`, testCtx.iUploadBytesOfNoiseAs)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
}
