package bulkorders

import (
	"reflect"
	"strings"
	"testing"

	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
)

func TestReadCSVNumbersLinesFromHeader(t *testing.T) {
	input := "\ufefforder_group_id, item_sku,item_quantity\n" +
		"G1,A-1,2\n" +
		"\n" +
		",,\n" +
		"G2,B-1,1\n"

	headers, rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if want := []string{"order_group_id", "item_sku", "item_quantity"}; !reflect.DeepEqual(headers, want) {
		t.Fatalf("expected headers %v, got %v", want, headers)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Line != 2 || rows[0].Fields[ColItemSKU] != "A-1" {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].Line != 5 || rows[1].Fields[ColGroupID] != "G2" {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestReadCSVShortRecordsLeaveColumnsBlank(t *testing.T) {
	_, rows, err := ReadCSV(strings.NewReader("order_group_id,item_sku,item_quantity\nG1,A-1\n"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].get(ColItemQuantity); got != "" {
		t.Fatalf("expected blank quantity, got %q", got)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	if !pkgerrors.Is(err, pkgerrors.CodeEmptyBatch) {
		t.Fatalf("expected empty batch error, got %v", err)
	}
}
