package analyzer

import (
	"reflect"
	"regexp"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/oraspectre/internal/metadata"
)

func TestIndexName(t *testing.T) {
	tests := []struct {
		table, column string
		want          string
	}{
		{"orders", "status", "IX_ORDERS_STATUS"},
		{"Orders", "Cust_Id", "IX_ORDERS_CUST_ID"},
		{"VERY_LONG_TABLE_NAME_FOR_TEST", "COL", "IX_VERY_LONG_TABLE_NAME_FOR_TE"},
		{"ABCDEFGHIJKLMNOPQRSTUVWXYZ", "X", "IX_ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
		{"Order Items", "Status", "IX_ORDER_ITEMS_STATUS"},
		{"T$HIST#", "a-b", "IX_T_HIST_A_B"},
		{"ÄÖÜÄÖÜÄÖÜÄÖÜÄÖÜ", "xÄ", "IX_X"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := IndexName(tt.table, tt.column)
			if got != tt.want {
				t.Errorf("IndexName(%q, %q) = %q, want %q", tt.table, tt.column, got, tt.want)
			}
			if len(got) > MaxIdentifierLength {
				t.Errorf("len = %d, exceeds %d", len(got), MaxIdentifierLength)
			}
		})
	}
}

func TestIndexNameMultibyteTruncation(t *testing.T) {
	got := IndexName("TABLE_ÄÖÜ_WITH_A_LONG_NAME_ÄÖ", "ÜBERGRÖßE")
	if !utf8.ValidString(got) {
		t.Fatalf("IndexName returned invalid UTF-8: %q", got)
	}
	if len(got) > MaxIdentifierLength {
		t.Errorf("len = %d bytes, exceeds %d", len(got), MaxIdentifierLength)
	}
	if !regexp.MustCompile(`^[A-Z][A-Z0-9_]*[A-Z0-9]$`).MatchString(got) {
		t.Errorf("IndexName = %q, want only [A-Z0-9_]", got)
	}
}

func TestCreateIndexDDL(t *testing.T) {
	if got := CreateIndexDDL("IX_T_C", "", "t", "c"); got != "CREATE INDEX IX_T_C ON t(c);" {
		t.Errorf("no schema: %q", got)
	}
	if got := CreateIndexDDL("IX_T_C", "app", "t", "c"); got != "CREATE INDEX IX_T_C ON APP.t(c);" {
		t.Errorf("with schema: %q", got)
	}
	if got := CreateIndexDDL("IX_ORDER_ITEMS_STATUS", "app", "Order Items", "Item Status"); got != `CREATE INDEX IX_ORDER_ITEMS_STATUS ON APP."Order Items"("Item Status");` {
		t.Errorf("quoted names: %q", got)
	}
	if got := CreateIndexDDL("IX_T_A", "", `a"b`, "a"); got != `CREATE INDEX IX_T_A ON "a""b"(a);` {
		t.Errorf("embedded quote: %q", got)
	}
}

func TestRecommendQuotedMixedCaseTable(t *testing.T) {
	points := []IndexPoint{{
		PointNumber: 1,
		PointType:   PointEntry,
		Priority:    PriorityCritical,
		TableName:   "Order Items",
		ColumnName:  "Status",
		NeedsIndex:  true,
	}}
	recs := Recommend(points, "")
	if len(recs) != 1 {
		t.Fatalf("recs = %+v", recs)
	}
	if recs[0].IndexName != "IX_ORDER_ITEMS_STATUS" {
		t.Errorf("IndexName = %q", recs[0].IndexName)
	}
	if want := `CREATE INDEX IX_ORDER_ITEMS_STATUS ON "Order Items"(Status);`; recs[0].DDL != want {
		t.Errorf("DDL = %q, want %q", recs[0].DDL, want)
	}
}

func TestRecommendOrderAndFilter(t *testing.T) {
	points := []IndexPoint{
		{PointNumber: 1, TableName: "a", ColumnName: "x", PointType: PointFilter, Priority: PriorityMedium, NeedsIndex: true},
		{PointNumber: 2, TableName: "b", ColumnName: "y", PointType: PointEntry, Priority: PriorityCritical, NeedsIndex: true},
		{PointNumber: 3, TableName: "c", ColumnName: "z", PointType: PointJoin, Priority: PriorityHigh, NeedsIndex: true},
		{PointNumber: 4, TableName: "d", ColumnName: "w", PointType: PointJoin, Priority: PriorityLow,
			ExistingIndex: &metadata.ExistingIndex{IndexName: "IX_D"}},
	}
	recs := Recommend(points, "")
	if len(recs) != 3 {
		t.Fatalf("recommendations = %d, want 3", len(recs))
	}
	var got []Priority
	for _, r := range recs {
		got = append(got, r.Priority)
		if r.ExpectedImprovement == "" || r.Rationale == "" {
			t.Errorf("incomplete recommendation %+v", r)
		}
	}
	want := []Priority{PriorityCritical, PriorityHigh, PriorityMedium}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("priorities = %v, want %v", got, want)
	}
	if recs[0].ExpectedImprovement != "order of magnitude" || recs[2].ExpectedImprovement != "2-5x" {
		t.Errorf("improvements = %q, %q", recs[0].ExpectedImprovement, recs[2].ExpectedImprovement)
	}
}

func TestRecommendMergesSameDDL(t *testing.T) {
	points := []IndexPoint{
		{PointNumber: 1, TableName: "orders", ColumnName: "id", PointType: PointFilter, Priority: PriorityMedium, NeedsIndex: true},
		{PointNumber: 3, TableName: "orders", ColumnName: "id", PointType: PointJoin, Priority: PriorityHigh, NeedsIndex: true},
	}
	recs := Recommend(points, "sales")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d, want 1", len(recs))
	}
	r := recs[0]
	if !reflect.DeepEqual(r.PointNumbers, []int{1, 3}) {
		t.Errorf("PointNumbers = %v", r.PointNumbers)
	}
	if r.Priority != PriorityHigh || r.PointType != PointJoin {
		t.Errorf("merged priority = %s/%s, want HIGH/JOIN", r.Priority, r.PointType)
	}
	if r.Schema != "SALES" || r.DDL != "CREATE INDEX IX_ORDERS_ID ON SALES.orders(id);" {
		t.Errorf("schema %q ddl %q", r.Schema, r.DDL)
	}
}

func TestRecommendEmpty(t *testing.T) {
	if recs := Recommend(nil, ""); len(recs) != 0 {
		t.Errorf("Recommend(nil) = %v", recs)
	}
}
