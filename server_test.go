package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/model"
	"github.com/HerbertGao/PicStitch/service"
	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Upload.UploadDir = t.TempDir()
	cfg.Upload.OutputDir = t.TempDir()
	cfg.Split.Layers = 3
	cfg.Split.CirclesPerLayer = 80
	cfg.Split.RadiusDivisor = 10
	return cfg
}

func testPNG(t *testing.T) ([]byte, *image.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(128 + x), G: uint8(200 - y), B: 140, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes(), img
}

type formFile struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r := newRouter(testConfig(t), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSplitThenMergeOverHTTP(t *testing.T) {
	cfg := testConfig(t)
	r := newRouter(cfg, nil)
	data, src := testPNG(t)

	body, contentType := multipartBody(t, map[string]string{"seed": "77"},
		formFile{field: "image", name: "in.png", contentType: "image/png", data: data})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/split", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.SplitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, int64(77), resp.Data.Seed)
	assert.Equal(t, 3, resp.Data.Radius)
	assert.Len(t, resp.Data.LayerFiles, 3)
	assert.NotEmpty(t, resp.Data.MD5)

	// 上传的临时文件已被清理
	entries, err := os.ReadDir(cfg.Upload.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var files []formFile
	for _, name := range append([]string{resp.Data.Base}, resp.Data.LayerFiles...) {
		raw, err := os.ReadFile(filepath.Join(resp.Data.Dir, name))
		require.NoError(t, err)
		files = append(files, formFile{field: "images", name: name, contentType: "image/png", data: raw})
	}
	body, contentType = multipartBody(t, nil, files...)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/merge", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	merged, err := png.Decode(w.Body)
	require.NoError(t, err)
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			require.Equal(t, src.NRGBAAt(x, y), color.NRGBAModel.Convert(merged.At(x, y)))
		}
	}
}

func TestSplitRejectsUnsupportedType(t *testing.T) {
	r := newRouter(testConfig(t), nil)
	body, contentType := multipartBody(t, nil,
		formFile{field: "image", name: "in.gif", contentType: "image/gif", data: []byte("GIF89a")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/split", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSplitUnreadableUpload(t *testing.T) {
	r := newRouter(testConfig(t), nil)
	body, contentType := multipartBody(t, nil,
		formFile{field: "image", name: "in.png", contentType: "image/png", data: []byte("nope")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/split", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMergeRejectsDuplicateNames(t *testing.T) {
	r := newRouter(testConfig(t), nil)
	data, _ := testPNG(t)
	body, contentType := multipartBody(t, nil,
		formFile{field: "images", name: "base.png", contentType: "image/png", data: data},
		formFile{field: "images", name: "dir/base.png", contentType: "image/png", data: data})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/merge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "base.png")
}

// 上传的清单指向目录之外的文件时不被采用，回退到亮度检测
func TestMergeIgnoresManifestOutsideUpload(t *testing.T) {
	secretDir := t.TempDir()
	secret := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	require.NoError(t, service.SaveImage(secret, filepath.Join(secretDir, "private.png")))

	r := newRouter(testConfig(t), nil)
	data, src := testPNG(t)
	manifest, err := json.Marshal(model.Manifest{
		Base:   filepath.Join("..", filepath.Base(secretDir), "private.png"),
		Layers: []string{"x.png"},
	})
	require.NoError(t, err)

	body, contentType := multipartBody(t, nil,
		formFile{field: "images", name: "x.png", contentType: "image/png", data: data},
		formFile{field: "images", name: service.ManifestName, contentType: "application/json", data: manifest})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/merge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "x.png", w.Header().Get("X-Base-Image"))

	merged, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, src.NRGBAAt(5, 5), color.NRGBAModel.Convert(merged.At(5, 5)))
}

func TestMergeWithoutImages(t *testing.T) {
	r := newRouter(testConfig(t), nil)
	body, contentType := multipartBody(t, map[string]string{"note": "empty"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/merge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSplitWithoutCache(t *testing.T) {
	r := newRouter(testConfig(t), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/split/abc/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/split/abc/notanumber", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{fmt.Errorf("%w: x", service.ErrInputUnreadable), 2},
		{fmt.Errorf("%w in d", service.ErrNoImagesFound), 3},
		{fmt.Errorf("%w: f", service.ErrDecodeFailure), 4},
		{fmt.Errorf("%w: f", service.ErrOutputWrite), 5},
		{fmt.Errorf("%w: f", service.ErrSizeMismatch), 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestSplitAndMergeCommands(t *testing.T) {
	dir := t.TempDir()
	data, src := testPNG(t)
	srcPath := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(srcPath, data, 0644))

	cfg := testConfig(t)
	out := filepath.Join(dir, "layers")
	require.NoError(t, (&SplitCmd{Src: srcPath, Out: out, Seed: seedFlag(3)}).Run(cfg))

	restored := filepath.Join(dir, "restored.png")
	require.NoError(t, (&MergeCmd{SrcDir: out, Out: restored, NoManifest: true}).Run(cfg))

	img, err := service.LoadImage(restored)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, img.Pix)

	empty := filepath.Join(dir, "empty")
	err = (&MergeCmd{SrcDir: empty, Out: filepath.Join(dir, "x.png")}).Run(cfg)
	assert.Equal(t, exitNoImagesFound, exitCode(err))
}

func seedFlag(v int64) *int64 { return &v }

func TestSplitSeedZeroIsReproducible(t *testing.T) {
	var args struct {
		Split SplitCmd `cmd:""`
	}
	parser, err := kong.New(&args)
	require.NoError(t, err)
	_, err = parser.Parse([]string{"split", "in.png", "out", "--seed", "0"})
	require.NoError(t, err)
	require.NotNil(t, args.Split.Seed)
	assert.Equal(t, int64(0), *args.Split.Seed)

	dir := t.TempDir()
	data, _ := testPNG(t)
	srcPath := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(srcPath, data, 0644))

	cfg := testConfig(t)
	for _, out := range []string{"a", "b"} {
		require.NoError(t, (&SplitCmd{Src: srcPath, Out: filepath.Join(dir, out), Seed: seedFlag(0)}).Run(cfg))
		manifest, err := service.ReadManifest(filepath.Join(dir, out))
		require.NoError(t, err)
		assert.Equal(t, int64(0), manifest.Seed)
	}
	for _, name := range []string{service.BaseName, service.LayerName(0)} {
		a, err := os.ReadFile(filepath.Join(dir, "a", name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dir, "b", name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestSplitWithoutSeedFlag(t *testing.T) {
	var args struct {
		Split SplitCmd `cmd:""`
	}
	parser, err := kong.New(&args)
	require.NoError(t, err)
	_, err = parser.Parse([]string{"split", "in.png", "out"})
	require.NoError(t, err)
	assert.Nil(t, args.Split.Seed)
}
