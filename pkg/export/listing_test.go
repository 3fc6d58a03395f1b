package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Dicklesworthstone/parts_viewer/pkg/expansion"
	"github.com/Dicklesworthstone/parts_viewer/pkg/grouping"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
)

func sampleRoot() *grouping.Group[model.Part] {
	parts := []model.Part{
		{ID: 1, PartNo: "P1", Description: "Hydraulic pump", Classification: "Rotable", Model: model.Ptr("M1"), UnitOfMeasure: model.Ptr("EA 1.00"), StockCount: 4},
		{ID: 2, PartNo: "P2", Description: "Seal", Classification: "Consumable", StockCount: 20},
	}
	return grouping.Build(parts, view.ByModel(), view.ByClassification())
}

func TestWriteTextCollapsed(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleRoot(), expansion.New(), TextOptions{Width: 80}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 top-level headers, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "▸ M1") {
		t.Errorf("Expected collapsed M1 first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "(no model)") {
		t.Errorf("Expected no-model group last, got %q", lines[1])
	}
	if strings.Contains(out, "P1") {
		t.Errorf("Collapsed groups must not list parts")
	}
}

func TestWriteTextFollowsStore(t *testing.T) {
	root := sampleRoot()
	store := expansion.New()
	store.MarkExpanded("M1")
	store.MarkExpanded("M1@Rotable")

	var buf bytes.Buffer
	if err := WriteText(&buf, root, store, TextOptions{Width: 80}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "▾ M1") || !strings.Contains(out, "  ▾ Rotable") {
		t.Errorf("Expected expanded M1 branch, got:\n%s", out)
	}
	if !strings.Contains(out, "    P1") {
		t.Errorf("Expected P1 indented under its leaf group, got:\n%s", out)
	}
	if strings.Contains(out, "P2") {
		t.Errorf("P2 is in a collapsed group, got:\n%s", out)
	}
}

func TestWriteTextExpandAllTruncates(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleRoot(), nil, TextOptions{ExpandAll: true, Width: 40}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"P1", "P2", "EA 1.00", "…"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestWriteTextUngrouped(t *testing.T) {
	root := grouping.Build([]model.Part{{ID: 1, PartNo: "P9", Description: "Bolt"}})
	var buf bytes.Buffer
	if err := WriteText(&buf, root, nil, TextOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "P9") {
		t.Errorf("Expected bare part line, got %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRoot(), "p"); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var doc ListingJSON
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if doc.Total != 2 || doc.Filter != "p" {
		t.Errorf("Unexpected header: %+v", doc)
	}
	if len(doc.Groups) != 2 {
		t.Fatalf("Expected 2 top-level groups, got %d", len(doc.Groups))
	}

	m1 := doc.Groups[0]
	if m1.Key != "M1" || m1.Level != "Model" || m1.Count != 1 {
		t.Errorf("Unexpected M1 group: %+v", m1)
	}
	if len(m1.Groups) != 1 || m1.Groups[0].ID != "M1@Rotable" {
		t.Fatalf("Expected Rotable leaf under M1, got %+v", m1.Groups)
	}
	if got := m1.Groups[0].Parts; len(got) != 1 || got[0].PartNo != "P1" {
		t.Errorf("Expected P1 in leaf, got %+v", got)
	}

	none := doc.Groups[1]
	if none.Key != "" || none.Name != "(no model)" || none.Groups[0].ID != "@Consumable" {
		t.Errorf("Unexpected no-model group: %+v", none)
	}
}
