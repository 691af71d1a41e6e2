package pagination

import "testing"

func TestNew_Defaults(t *testing.T) {
	p := New(0, 0)
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
	if Default() != p {
		t.Error("expected Default() to equal New(0, 0)")
	}
}

func TestNew_Clamps(t *testing.T) {
	tests := []struct {
		name           string
		limit, offset  int
		wantL, wantOff int
	}{
		{"negative limit", -5, 0, DefaultLimit, 0},
		{"over max", 5000, 10, MaxLimit, 10},
		{"negative offset", 20, -3, 20, 0},
		{"within bounds", 50, 100, 50, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.limit, tt.offset)
			if p.Limit != tt.wantL || p.Offset != tt.wantOff {
				t.Errorf("New(%d, %d) = %+v, want limit %d offset %d", tt.limit, tt.offset, p, tt.wantL, tt.wantOff)
			}
		})
	}
}

func TestParams_SQL(t *testing.T) {
	if got := New(25, 50).SQL(); got != "LIMIT 25 OFFSET 50" {
		t.Errorf("unexpected SQL: %s", got)
	}
}

func TestParams_Navigation(t *testing.T) {
	p := New(10, 10)
	if !p.HasNext(25) {
		t.Error("expected next page when 25 total")
	}
	if p.HasNext(20) {
		t.Error("expected no next page when 20 total")
	}
	if !p.HasPrevious() {
		t.Error("expected previous page at offset 10")
	}
	if p.NextOffset() != 20 {
		t.Errorf("expected next offset 20, got %d", p.NextOffset())
	}
	if New(10, 5).PreviousOffset() != 0 {
		t.Error("expected previous offset floored at zero")
	}
}

func TestNewPage(t *testing.T) {
	page := NewPage([]string{"a", "b"}, 5, New(2, 0))
	if !page.HasMore {
		t.Error("expected more results")
	}
	if page.Total != 5 || page.Limit != 2 || len(page.Items) != 2 {
		t.Errorf("unexpected page: %+v", page)
	}
}
