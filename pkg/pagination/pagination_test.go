package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestFromContext_Absent(t *testing.T) {
	c, _ := newContext("/")
	p, err := FromContext(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Enabled {
		t.Error("expected pagination to be disabled without parameters")
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	c, _ := newContext("/?limit=50&offset=10")
	p, err := FromContext(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Enabled || p.Limit != 50 || p.Offset != 10 {
		t.Errorf("unexpected params %+v", p)
	}
}

func TestFromContext_OffsetOnly(t *testing.T) {
	c, _ := newContext("/?offset=3")
	p, err := FromContext(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Limit != MaxLimit || p.Offset != 3 {
		t.Errorf("unexpected params %+v", p)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	c, _ := newContext("/?limit=100000")
	p, err := FromContext(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_Invalid(t *testing.T) {
	for _, target := range []string{"/?limit=0", "/?limit=abc", "/?offset=-1", "/?offset=x"} {
		c, _ := newContext(target)
		_, err := FromContext(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", target, err)
		}
	}
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		p    Params
		want []int
	}{
		{"disabled", Params{}, []int{1, 2, 3, 4, 5}},
		{"first page", Params{Enabled: true, Limit: 2}, []int{1, 2}},
		{"middle", Params{Enabled: true, Limit: 2, Offset: 2}, []int{3, 4}},
		{"tail", Params{Enabled: true, Limit: 2, Offset: 4}, []int{5}},
		{"past end", Params{Enabled: true, Limit: 2, Offset: 9}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext("/")
			got := Window(c, tt.p, items)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
			total := rec.Header().Get(TotalCountHeader)
			if tt.p.Enabled && total != "5" {
				t.Errorf("expected total header 5, got %q", total)
			}
			if !tt.p.Enabled && total != "" {
				t.Errorf("expected no total header, got %q", total)
			}
		})
	}
}

func TestHasNext(t *testing.T) {
	p := Params{Enabled: true, Limit: 10, Offset: 0}
	if !p.HasNext(25) {
		t.Error("expected next page")
	}
	if p.NextOffset() != 10 {
		t.Errorf("expected next offset 10, got %d", p.NextOffset())
	}
	if (Params{Enabled: true, Limit: 10, Offset: 20}).HasNext(25) {
		t.Error("expected last page")
	}
}
