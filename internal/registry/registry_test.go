package registry

import "testing"

func TestResolveByKeyAndLabel(t *testing.T) {
	reg := Orders()

	byKey, ok := reg.Resolve("delivery_status")
	if !ok {
		t.Fatal("expected to resolve by key")
	}
	byLabel, ok := reg.Resolve("Trạng thái giao hàng")
	if !ok {
		t.Fatal("expected to resolve by label")
	}
	if byKey.Key != byLabel.Key {
		t.Errorf("key and label resolve to different columns: %q vs %q", byKey.Key, byLabel.Key)
	}

	if _, ok := reg.Resolve("không tồn tại"); ok {
		t.Error("unknown name must not resolve")
	}
}

func TestEditable(t *testing.T) {
	reg := Orders()

	if reg.Editable("order_code") {
		t.Error("primary key column must be read-only")
	}
	if !reg.Editable("note") {
		t.Error("note column must be editable")
	}
	if reg.Editable("no_such_column") {
		t.Error("unknown column must not be editable")
	}
}

func TestValidValue(t *testing.T) {
	reg := Orders()

	tests := []struct {
		column string
		value  string
		want   bool
	}{
		{"delivery_status", StatusDelivering, true},
		{"delivery_status", "đang giao", true}, // enum match is case-insensitive
		{"delivery_status", "", true},          // clearing is always allowed
		{"delivery_status", "Bay Lên Trời", false},
		{"note", "tuỳ ý", true}, // free text
		{"customer_name", "Nguyễn Văn A", true},
	}
	for _, tt := range tests {
		if got := reg.ValidValue(tt.column, tt.value); got != tt.want {
			t.Errorf("ValidValue(%q, %q) = %v, want %v", tt.column, tt.value, got, tt.want)
		}
	}
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	if _, err := New("id", []Column{
		{Label: "A", Key: "a", Kind: KindText, Editable: true},
		{Label: "B", Key: "a", Kind: KindText, Editable: true},
	}); err == nil {
		t.Error("duplicate keys must be rejected")
	}

	if _, err := New("id", []Column{
		{Label: "A", Key: "a", Kind: KindReadOnly, Editable: true},
	}); err == nil {
		t.Error("editable read-only column must be rejected")
	}

	if _, err := New("id", []Column{
		{Label: "A", Key: "a", Kind: KindEnum, Editable: true},
	}); err == nil {
		t.Error("enum without values must be rejected")
	}
}

func TestOrdersLayout(t *testing.T) {
	reg := Orders()

	if reg.PrimaryKey() != OrderPrimaryKey {
		t.Errorf("primary key = %q", reg.PrimaryKey())
	}
	first, ok := reg.At(0)
	if !ok || first.Key != OrderPrimaryKey {
		t.Errorf("first column = %+v, want the order code", first)
	}
	if reg.Len() != 14 {
		t.Errorf("column count = %d, want 14", reg.Len())
	}

	for _, col := range reg.Columns() {
		if col.Key == "" || col.Label == "" {
			t.Errorf("column %+v missing key or label", col)
		}
	}
}
