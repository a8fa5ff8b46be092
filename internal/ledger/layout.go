// Package ledger appends receipts into spreadsheet-backed accumulation
// stores: one workbook per key, one sheet per calendar month.
package ledger

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

// Kind selects which ledger a writer serves.
type Kind string

const (
	// KindBranch accumulates per business location.
	KindBranch Kind = "branch"
	// KindStaff accumulates per staff member.
	KindStaff Kind = "staff"
)

// ColumnMap fixes where each receipt field lands in a data row. Positions are
// static per ledger kind; a zero column means the kind has no such column.
type ColumnMap struct {
	Date        int
	Vendor      int
	Staff       int
	Amount      int
	InvoiceFlag int
	Account     int
	Tax10       int
	Tax8        int
	Invoice     int // duplicate-detection column, holds the raw invoice number
}

// Layout describes the fixed sheet geometry of one ledger kind. The templates
// carry formula columns with cross-sheet references, so rows are never
// inserted or shifted; writers only fill rows whose key columns are empty.
type Layout struct {
	Kind         Kind
	DataStartRow int
	KeyColumns   []int
	FooterLabels []string
	MaxScanRows  int
	Columns      ColumnMap
}

// BranchLayout is the per-location accumulation table.
func BranchLayout() Layout {
	return Layout{
		Kind:         KindBranch,
		DataStartRow: 6,
		KeyColumns:   []int{1, 3, 4, 6, 7, 8, 11, 12},
		FooterLabels: []string{"合計", "残高"},
		MaxScanRows:  200,
		Columns: ColumnMap{
			Date:        1,  // A 支払日
			Vendor:      3,  // C 摘要
			Staff:       4,  // D 担当者
			Amount:      6,  // F 支出
			InvoiceFlag: 7,  // G インボイス有無
			Account:     8,  // H 勘定科目
			Tax10:       11, // K 10%税額
			Tax8:        12, // L 8%税額
			Invoice:     16, // P 登録番号 (duplicate detection)
		},
	}
}

// StaffLayout is the per-staff monthly expense table.
func StaffLayout() Layout {
	return Layout{
		Kind:         KindStaff,
		DataStartRow: 3,
		KeyColumns:   []int{1, 2, 4, 7, 9, 10, 12},
		FooterLabels: []string{"合計", "残高"},
		MaxScanRows:  200,
		Columns: ColumnMap{
			Staff:       1,  // A 担当者
			Date:        2,  // B 日付
			Vendor:      4,  // D 店名
			InvoiceFlag: 7,  // G インボイス有無
			Tax10:       9,  // I 10%税額
			Tax8:        10, // J 8%税額
			Amount:      12, // L 金額
			Invoice:     14, // N 登録番号 (duplicate detection)
		},
	}
}

// KeyFor extracts the accumulation key for this kind from a receipt.
func (l Layout) KeyFor(r entity.Receipt) string {
	if l.Kind == KindStaff {
		return r.StaffID
	}
	return r.BusinessLocationID
}

// SheetName derives the month-sheet name from a receipt date. Branch ledgers
// use the 2026年1月 convention, staff ledgers 202601.
func (l Layout) SheetName(date time.Time) string {
	if l.Kind == KindStaff {
		return fmt.Sprintf("%d%02d", date.Year(), int(date.Month()))
	}
	return fmt.Sprintf("%d年%d月", date.Year(), int(date.Month()))
}
