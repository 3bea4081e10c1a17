package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/box"
)

type mockDetect struct {
	det domain.Detection
	err error
}

func (m *mockDetect) Detect(_ context.Context, _ string) (domain.Detection, error) {
	return m.det, m.err
}

type mockSearch struct {
	gotID    string
	gotBoxes []box.Box
	results  [][]domain.Product
	err      error
}

func (m *mockSearch) Search(_ context.Context, id string, boxes []box.Box) ([][]domain.Product, error) {
	m.gotID = id
	m.gotBoxes = boxes
	return m.results, m.err
}

func newTestRouter(detect DetectService, search SearchService) http.Handler {
	r := gochi.NewRouter()
	NewServer(detect, search, zap.NewNop()).Routes(r)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestDetect_ReturnsPercentBoxes(t *testing.T) {
	detect := &mockDetect{det: domain.Detection{
		ID: "img-1",
		Boxes: []box.Box{
			{CX: 0.5, CY: 0.25, W: 0.1, H: 0.2, Conf: 0.9},
		},
	}}
	handler := newTestRouter(detect, &mockSearch{})

	rr := doJSON(t, handler, "POST", "/detect", map[string]string{"image": "aGVsbG8="})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ID    string   `json:"id"`
		Boxes []boxDTO `json:"boxes"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "img-1" {
		t.Errorf("wrong id %q", resp.ID)
	}
	if len(resp.Boxes) != 1 {
		t.Fatalf("want 1 box, got %d", len(resp.Boxes))
	}
	b := resp.Boxes[0]
	if b.X != 50 || b.Y != 25 || b.Width != 10 || b.Height != 20 {
		t.Errorf("box not scaled to percent: %+v", b)
	}
	if b.Conf != 0.9 {
		t.Errorf("conf rescaled: %v", b.Conf)
	}
}

func TestDetect_MissingImage(t *testing.T) {
	handler := newTestRouter(&mockDetect{}, &mockSearch{})

	rr := doJSON(t, handler, "POST", "/detect", map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestDetect_BadImage(t *testing.T) {
	detect := &mockDetect{err: domain.ErrBadImage}
	handler := newTestRouter(detect, &mockSearch{})

	rr := doJSON(t, handler, "POST", "/detect", map[string]string{"image": "???"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}

	var resp struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Code != codeBadImage {
		t.Errorf("got code %q, want %q", resp.Code, codeBadImage)
	}
}

func TestDetect_UpstreamDown(t *testing.T) {
	detect := &mockDetect{err: domain.ErrUpstreamUnavailable}
	handler := newTestRouter(detect, &mockSearch{})

	rr := doJSON(t, handler, "POST", "/detect", map[string]string{"image": "aGVsbG8="})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}
}

func TestSearch_ScalesBoxesDown(t *testing.T) {
	search := &mockSearch{results: [][]domain.Product{
		{{ID: "sku-a", Name: "product sku-a", Price: domain.Price{Original: 19.99}}},
	}}
	handler := newTestRouter(&mockDetect{}, search)

	rr := doJSON(t, handler, "POST", "/search", map[string]any{
		"id": "img-1",
		"boxes": []boxDTO{
			{X: 50, Y: 25, Width: 10, Height: 20, Conf: 0.9},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	if search.gotID != "img-1" {
		t.Errorf("wrong id %q", search.gotID)
	}
	if len(search.gotBoxes) != 1 {
		t.Fatalf("want 1 box, got %d", len(search.gotBoxes))
	}
	b := search.gotBoxes[0]
	if b.CX != 0.5 || b.CY != 0.25 || b.W != 0.1 || b.H != 0.2 {
		t.Errorf("box not scaled to fractions: %+v", b)
	}

	var resp struct {
		Results [][]productDTO `json:"results"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || len(resp.Results[0]) != 1 {
		t.Fatalf("results misshaped: %#v", resp.Results)
	}
	if resp.Results[0][0].ID != "sku-a" || resp.Results[0][0].Price.Original != 19.99 {
		t.Errorf("product misserialized: %+v", resp.Results[0][0])
	}
}

func TestSearch_UnknownAsset(t *testing.T) {
	search := &mockSearch{err: domain.ErrAssetNotFound}
	handler := newTestRouter(&mockDetect{}, search)

	rr := doJSON(t, handler, "POST", "/search", map[string]any{
		"id":    "missing",
		"boxes": []boxDTO{{X: 50, Y: 50, Width: 10, Height: 10}},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}

	var resp struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Code != codeAssetNotFound {
		t.Errorf("got code %q, want %q", resp.Code, codeAssetNotFound)
	}
}

func TestSearch_NoBoxes(t *testing.T) {
	handler := newTestRouter(&mockDetect{}, &mockSearch{})

	rr := doJSON(t, handler, "POST", "/search", map[string]any{"id": "img-1", "boxes": []boxDTO{}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestSearch_InternalError(t *testing.T) {
	search := &mockSearch{err: context.DeadlineExceeded}
	handler := newTestRouter(&mockDetect{}, search)

	rr := doJSON(t, handler, "POST", "/search", map[string]any{
		"id":    "img-1",
		"boxes": []boxDTO{{X: 50, Y: 50, Width: 10, Height: 10}},
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("deadline")) {
		t.Errorf("internal detail leaked: %s", rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&mockDetect{}, &mockSearch{})

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
}
