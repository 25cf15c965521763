// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package rest

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/multiscale/internal/imgio"
	"github.com/mlnoga/multiscale/internal/octave"
	"github.com/mlnoga/multiscale/internal/synth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, req)
	return w
}

func TestGetPing(t *testing.T) {
	w := serveJSON(t, "GET", "/api/v1/ping", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("body %q; want pong", w.Body.String())
	}
}

func TestGetSelftest(t *testing.T) {
	w := serveJSON(t, "GET", "/api/v1/selftest", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want 200", w.Code)
	}
	var reply struct {
		Centers []octave.Center `json:"centers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding %q: %s", w.Body.String(), err.Error())
	}
	if len(reply.Centers) != 1 {
		t.Errorf("%d selftest centers; want 1", len(reply.Centers))
	}
}

func TestPostDetectBadRequest(t *testing.T) {
	if w := serveJSON(t, "POST", "/api/v1/detect", "{not json"); w.Code != http.StatusBadRequest {
		t.Errorf("status %d for invalid json; want 400", w.Code)
	}
	body := `{"filePatterns":["/nonexistent/dir/*.png"]}`
	if w := serveJSON(t, "POST", "/api/v1/detect", body); w.Code != http.StatusBadRequest {
		t.Errorf("status %d for an empty glob; want 400", w.Code)
	}
}

func TestPostDetect(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "frame.png")
	data := synth.Blob2D(64, 64, 31.3, 32.6, 2.5, 1)
	img := image.NewGray16(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(data[y*64+x] * 65535)})
		}
	}
	if err := imgio.SaveImage(fileName, img); err != nil {
		t.Fatalf("save: %s", err.Error())
	}

	body := fmt.Sprintf(`{"filePatterns":[%q]}`, filepath.Join(dir, "*.png"))
	w := serveJSON(t, "POST", "/api/v1/detect", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want 200; body %q", w.Code, w.Body.String())
	}
	var reply map[string][]octave.Center
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding %q: %s", w.Body.String(), err.Error())
	}
	centers, ok := reply[fileName]
	if !ok {
		t.Fatalf("no result for %s in %q", fileName, w.Body.String())
	}
	if len(centers) != 1 {
		t.Errorf("%d centers; want 1", len(centers))
	}
}

func TestPostLinkBadRequest(t *testing.T) {
	if w := serveJSON(t, "POST", "/api/v1/link", "{not json"); w.Code != http.StatusBadRequest {
		t.Errorf("status %d for invalid json; want 400", w.Code)
	}
	body := `{"filePatterns":["/nonexistent/dir/*.csv"]}`
	if w := serveJSON(t, "POST", "/api/v1/link", body); w.Code != http.StatusBadRequest {
		t.Errorf("status %d for an empty glob; want 400", w.Code)
	}
}

func TestPostLink(t *testing.T) {
	dir := t.TempDir()
	frames := [][]octave.Center{
		{{X: 10, Y: 10, R: 2, Intensity: -0.1}},
		{{X: 11, Y: 10, R: 2, Intensity: -0.1}},
	}
	for i, centers := range frames {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame%d.csv", i)))
		if err != nil {
			t.Fatalf("create: %s", err.Error())
		}
		if err := imgio.WriteCentersCSV(f, centers); err != nil {
			t.Fatalf("write: %s", err.Error())
		}
		f.Close()
	}
	body := fmt.Sprintf(`{"filePatterns":[%q],"factor":1}`, filepath.Join(dir, "*.csv"))
	w := serveJSON(t, "POST", "/api/v1/link", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want 200; body %q", w.Code, w.Body.String())
	}
	var reply struct {
		Frames       int `json:"frames"`
		Trajectories []struct {
			Start int   `json:"start"`
			Pos   []int `json:"pos"`
		} `json:"trajectories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decoding %q: %s", w.Body.String(), err.Error())
	}
	if reply.Frames != 2 {
		t.Errorf("%d frames; want 2", reply.Frames)
	}
	if len(reply.Trajectories) != 1 || len(reply.Trajectories[0].Pos) != 2 {
		t.Errorf("trajectories %+v; want one spanning both frames", reply.Trajectories)
	}
}
