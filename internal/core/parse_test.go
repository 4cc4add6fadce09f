package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func values(t *Table) [][]string {
	return t.Records()
}

func TestParse_RouteScenario(t *testing.T) {
	table, err := Parse("route_id,stop_id,arrival_time\n12,45,08:15:00\n", ".csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantHeaders := []string{"route_id", "stop_id", "arrival_time"}
	if diff := cmp.Diff(wantHeaders, table.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	wantRows := [][]string{{"12.00", "45.00", "08:15:00"}}
	if diff := cmp.Diff(wantRows, values(table)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	wantKinds := []CellKind{CellNumber, CellNumber, CellTime}
	for i, c := range table.Rows[0] {
		if c.Kind != wantKinds[i] {
			t.Errorf("cell %d kind = %v, want %v", i, c.Kind, wantKinds[i])
		}
	}
}

func TestParse_Extensions(t *testing.T) {
	tests := []struct {
		name     string
		ext      string
		wantKind ErrorKind
	}{
		{name: "csv", ext: ".csv", wantKind: 0},
		{name: "csv uppercase", ext: ".CSV", wantKind: 0},
		{name: "xlsx", ext: ".xlsx", wantKind: KindUnsupportedFormat},
		{name: "xls", ext: ".xls", wantKind: KindUnsupportedFormat},
		{name: "txt", ext: ".txt", wantKind: KindUnsupportedFileType},
		{name: "none", ext: "", wantKind: KindUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("a,b\n1,2\n", tt.ext)
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(Parse(%q)) = %v, want %v (err=%v)", tt.ext, got, tt.wantKind, err)
			}
		})
	}
}

func TestParse_XLSXIgnoresContent(t *testing.T) {
	for _, content := range []string{"", "route_id\n1\n", "\x50\x4b\x03\x04binary"} {
		_, err := Parse(content, ".xlsx")
		if !errors.Is(err, &IngestionError{Kind: KindUnsupportedFormat}) {
			t.Errorf("Parse(%q, .xlsx) error = %v, want unsupported format", content, err)
		}
		var ie *IngestionError
		if errors.As(err, &ie) && ie.Retryable() {
			t.Error("unsupported format should not be retryable")
		}
		if !strings.Contains(err.Error(), "not yet implemented") {
			t.Errorf("error = %q, want mention of not yet implemented", err.Error())
		}
	}
}

func TestParse_LineHandling(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantHeaders []string
		wantRows    [][]string
	}{
		{
			name:        "crlf line endings",
			content:     "a,b\r\n1,x\r\n2,y\r\n",
			wantHeaders: []string{"a", "b"},
			wantRows:    [][]string{{"1.00", "x"}, {"2.00", "y"}},
		},
		{
			name:        "blank lines discarded",
			content:     "\n\n  \na,b\n\n1,2\n   \n3,4",
			wantHeaders: []string{"a", "b"},
			wantRows:    [][]string{{"1.00", "2.00"}, {"3.00", "4.00"}},
		},
		{
			name:        "header only",
			content:     "a,b,c\n",
			wantHeaders: []string{"a", "b", "c"},
			wantRows:    [][]string{},
		},
		{
			name:        "headers trimmed",
			content:     " a , b \nx,y",
			wantHeaders: []string{"a", "b"},
			wantRows:    [][]string{{"x", "y"}},
		},
		{
			name:        "quoted fields are split naively",
			content:     "name,city\n\"Smith, J\",Oslo,extra\n\"Doe\",Bergen",
			wantHeaders: []string{"name", "city"},
			wantRows:    [][]string{{`"Doe"`, "Bergen"}},
		},
		{
			name:        "empty cells kept",
			content:     "a,b,c\n,,\n",
			wantHeaders: []string{"a", "b", "c"},
			wantRows:    [][]string{{"", "", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(tt.content, ".csv")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantHeaders, table.Headers); diff != "" {
				t.Errorf("headers mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRows, values(table)); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_EmptyContent(t *testing.T) {
	table, err := Parse("", ".csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(table.Headers) != 0 || len(table.Rows) != 0 {
		t.Errorf("Parse(\"\") = %d headers, %d rows, want 0, 0", len(table.Headers), len(table.Rows))
	}
}

func TestParse_RowCountMatchesConsistentLines(t *testing.T) {
	for _, cols := range []int{1, 2, 5} {
		for _, n := range []int{0, 1, 7, 100} {
			t.Run(fmt.Sprintf("%dcols_%drows", cols, n), func(t *testing.T) {
				var b strings.Builder
				header := make([]string, cols)
				for i := range header {
					header[i] = fmt.Sprintf("h%d", i)
				}
				b.WriteString(strings.Join(header, ",") + "\n")
				for r := 0; r < n; r++ {
					row := make([]string, cols)
					for i := range row {
						row[i] = fmt.Sprintf("v%d", r)
					}
					b.WriteString(strings.Join(row, ",") + "\n")
					if r%3 == 0 {
						b.WriteString("\n")
					}
				}

				table, err := Parse(b.String(), ".csv")
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				if len(table.Rows) != n {
					t.Errorf("rows = %d, want %d", len(table.Rows), n)
				}
				for i, row := range table.Rows {
					if len(row) != cols {
						t.Errorf("row %d has %d cells, want %d", i, len(row), cols)
					}
				}
			})
		}
	}
}

func TestParse_DropsInconsistentRows(t *testing.T) {
	content := "a,b,c\n1,2,3\n1,2\n\n1,2,3,4\n4,5,6\n"

	table, err := Parse(content, ".csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantRows := [][]string{{"1.00", "2.00", "3.00"}, {"4.00", "5.00", "6.00"}}
	if diff := cmp.Diff(wantRows, values(table)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	wantDropped := []DroppedRow{
		{LineNumber: 3, Got: 2, Want: 3},
		{LineNumber: 5, Got: 4, Want: 3},
	}
	if diff := cmp.Diff(wantDropped, table.Dropped); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
	if got := table.DroppedCount(); got != 2 {
		t.Errorf("DroppedCount() = %d, want 2", got)
	}
}

func TestParse_Idempotent(t *testing.T) {
	content := "route_id,stop_id,arrival_time,note,load\n" +
		"12,45,08:15:00,late, 2.5 \n" +
		"7,-0,23:59:59,,1e3\n" +
		"0.005,3,00:00:00,ok,.5\n"

	first, err := Parse(content, ".csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(first.Headers, ",") + "\n")
	for _, rec := range first.Records() {
		b.WriteString(strings.Join(rec, ",") + "\n")
	}

	second, err := Parse(b.String(), ".csv")
	if err != nil {
		t.Fatalf("re-Parse() error = %v", err)
	}

	if diff := cmp.Diff(first.Records(), second.Records()); diff != "" {
		t.Errorf("re-parse changed values (-first +second):\n%s", diff)
	}
}

func TestParser_CustomNormalizer(t *testing.T) {
	p := Parser{Normalizer: TextCell}

	table, err := p.Parse("a,b\n 3 ,08:15:00\n", ".csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []Cell{{Kind: CellText, Value: "3"}, {Kind: CellText, Value: "08:15:00"}}
	if diff := cmp.Diff(want, table.Rows[0]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitTable(t *testing.T) {
	raw := SplitTable(" a ,b\n\n 1 , 2 \n")

	want := RawTable{
		Headers: []string{"a", "b"},
		Rows:    []RawRow{{Line: 3, Cells: []string{" 1 ", " 2 "}}},
	}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("SplitTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterRows(t *testing.T) {
	raw := RawTable{
		Headers: []string{"a", "b"},
		Rows: []RawRow{
			{Line: 2, Cells: []string{"1", "2"}},
			{Line: 3, Cells: []string{"1"}},
		},
	}

	kept, dropped := FilterRows(raw)

	if len(kept.Rows) != 1 || kept.Rows[0].Line != 2 {
		t.Errorf("kept = %+v, want only line 2", kept.Rows)
	}
	if diff := cmp.Diff([]DroppedRow{{LineNumber: 3, Got: 1, Want: 2}}, dropped); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Preview(t *testing.T) {
	table, err := Parse("a\n1\n2\n3\n", ".csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 3},
		{limit: -1, want: 3},
		{limit: 2, want: 2},
		{limit: 10, want: 3},
	}
	for _, tt := range tests {
		if got := len(table.Preview(tt.limit)); got != tt.want {
			t.Errorf("Preview(%d) returned %d rows, want %d", tt.limit, got, tt.want)
		}
	}
}
