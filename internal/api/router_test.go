package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/faceapi/internal/analyzer/mock"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/execprovider"
	"github.com/saturnino-fabrica-de-software/faceapi/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, maxUpload int) *Router {
	t.Helper()

	svc := service.NewDetectionService(mock.New(), testLogger(), nil)
	router := NewRouter(testLogger(), &Dependencies{
		DetectionService: svc,
		Selection:        execprovider.Resolve("auto", []string{execprovider.CPU}),
		CPUFeatures:      []string{"avx2"},
		MaxUploadBytes:   maxUpload,
	})
	router.Setup()
	return router
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postDetect(t *testing.T, router *Router, file []byte, fields map[string]string) (int, map[string]interface{}) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if file != nil {
		part, err := writer.CreateFormFile("file", "upload.png")
		require.NoError(t, err)
		_, _ = part.Write(file)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/detect", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := router.App().Test(req, -1)
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestRouter_Root(t *testing.T) {
	router := newTestRouter(t, 0)

	resp, err := router.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "InsightFace API running", out["message"])
}

func TestRouter_Info(t *testing.T) {
	router := newTestRouter(t, 0)

	resp, err := router.App().Test(httptest.NewRequest("GET", "/info", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "mock", out["analyzer"])
	assert.Equal(t, "auto", out["backend"])
	assert.Equal(t, execprovider.CPU, out["active_provider"])
	assert.Equal(t, []interface{}{execprovider.CPU}, out["requested_providers"])
}

func TestRouter_Detect_EndToEnd(t *testing.T) {
	router := newTestRouter(t, 0)

	status, out := postDetect(t, router, pngBytes(t, 100, 100), map[string]string{
		"return_face_data": "true",
	})

	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, float64(1), out["faces_count"])
	assert.IsType(t, float64(0), out["process_time"])

	faces := out["faces"].([]interface{})
	require.Len(t, faces, 1)
	face := faces[0].(map[string]interface{})

	bbox := face["bbox"].([]interface{})
	require.Len(t, bbox, 4)
	assert.InDelta(t, 10, bbox[0], 1)
	assert.InDelta(t, 90, bbox[2], 1)
	assert.InDelta(t, 0.99, face["confidence"], 1e-6)
	assert.Len(t, face["embedding"], 512)
	assert.NotEmpty(t, face["face_data"])
}

func TestRouter_Detect_SkipsEmbedding(t *testing.T) {
	router := newTestRouter(t, 0)

	status, out := postDetect(t, router, pngBytes(t, 64, 64), map[string]string{
		"extract_embedding": "false",
	})

	assert.Equal(t, 200, status)
	face := out["faces"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, face, "embedding")
	assert.NotContains(t, face, "face_data")
}

func TestRouter_Detect_InvalidImage(t *testing.T) {
	router := newTestRouter(t, 0)

	status, out := postDetect(t, router, []byte("definitely not an image"), nil)

	assert.Equal(t, 400, status)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "invalid image format", out["message"])
}

func TestRouter_Detect_MissingFile(t *testing.T) {
	router := newTestRouter(t, 0)

	status, out := postDetect(t, router, nil, map[string]string{"min_face_size": "20"})

	assert.Equal(t, 400, status)
	assert.Equal(t, "error", out["status"])
}

func TestRouter_Detect_BodyLimit(t *testing.T) {
	router := newTestRouter(t, 1024)

	// the limit is enforced by the transport, so serve on a real listener
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = router.App().Listener(ln) }()
	defer func() { _ = router.Shutdown() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "upload.png")
	require.NoError(t, err)
	_, _ = part.Write(bytes.Repeat([]byte{0xff}, 4096))
	require.NoError(t, writer.Close())

	resp, err := http.Post("http://"+ln.Addr().String()+"/detect", writer.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "Request Entity Too Large", out["message"])
}

func TestRouter_SetupWithoutDependencies(t *testing.T) {
	router := NewRouter(testLogger(), nil)
	router.Setup()

	resp, err := router.App().Test(httptest.NewRequest("GET", "/info", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
