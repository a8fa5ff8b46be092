package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/directory"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

// Status is the outcome class of one write attempt.
type Status string

const (
	StatusWritten          Status = "written"
	StatusSkippedDuplicate Status = "skipped_duplicate"
	StatusError            Status = "error"
)

// Failure codes carried in Result.Code when Status is error.
const (
	CodeResourceLocked   = "RESOURCE_LOCKED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeCorruptedStore   = "CORRUPTED_STORE"
	CodeInvalidReceipt   = "INVALID_RECEIPT"
	CodeWriteFailed      = "WRITE_FAILED"
)

// Result reports one write attempt. Classified failures are returned here as
// values; WriteReceipt never raises them past its own boundary.
type Result struct {
	Status    Status `json:"status"`
	Key       string `json:"key"`
	Row       int    `json:"row,omitempty"`
	SheetName string `json:"sheet_name,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Err       string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

// Retryable reports whether the failure is transient (lock held elsewhere).
func (r Result) Retryable() bool {
	return r.Status == StatusError && r.Code == CodeResourceLocked
}

// Writer appends receipts into one kind of ledger. Writers to the same
// workbook are serialized in-process per file path; different keys proceed
// concurrently.
type Writer struct {
	layout    Layout
	templates *Templates
	dir       directory.Directory
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter returns a ledger writer for the given layout.
func NewWriter(layout Layout, templates *Templates, dir directory.Directory, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		layout:    layout,
		templates: templates,
		dir:       dir,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Kind returns which ledger this writer serves.
func (w *Writer) Kind() Kind {
	return w.layout.Kind
}

// WriteReceipt appends one receipt into the key's month sheet. The write is
// idempotent with respect to row count: a receipt whose invoice number already
// appears in the sheet's duplicate-detection column is skipped.
func (w *Writer) WriteReceipt(r entity.Receipt) Result {
	key := w.layout.KeyFor(r)
	if strings.TrimSpace(key) == "" {
		return Result{
			Status: StatusError,
			Code:   CodeInvalidReceipt,
			Err:    fmt.Sprintf("%s ledger requires a key field", w.layout.Kind),
		}
	}

	date, err := time.Parse("2006-01-02", r.ReceiptDate)
	if err != nil {
		return Result{
			Status: StatusError,
			Key:    key,
			Code:   CodeInvalidReceipt,
			Err:    fmt.Sprintf("invalid receipt_date %q", r.ReceiptDate),
		}
	}

	unlock := w.lockWorkbook(key)
	defer unlock()

	f, path, err := w.openWithRecovery(key)
	if err != nil {
		return w.classify(key, "", err)
	}
	defer f.Close()

	sheet, err := w.ensureMonthSheet(f, w.layout.SheetName(date))
	if err != nil {
		return w.classify(key, path, err)
	}

	dup, err := w.hasDuplicateInvoice(f, sheet, r.InvoiceNumber)
	if err != nil {
		return w.classify(key, path, err)
	}
	if dup {
		w.logger.Warn("ledger.write.duplicate",
			"kind", w.layout.Kind, "key", key, "sheet", sheet, "invoice", r.InvoiceNumber)
		return Result{Status: StatusSkippedDuplicate, Key: key, SheetName: sheet, FilePath: path}
	}

	row, err := w.findNextEmptyRow(f, sheet)
	if err != nil {
		return w.classify(key, path, err)
	}

	if err := w.writeRow(f, sheet, row, r); err != nil {
		return w.classify(key, path, err)
	}

	if err := f.Save(); err != nil {
		return w.classify(key, path, classifySaveError(err))
	}

	w.logger.Info("ledger.write.ok",
		"kind", w.layout.Kind, "key", key, "sheet", sheet, "row", row, "path", path)
	return Result{Status: StatusWritten, Key: key, Row: row, SheetName: sheet, FilePath: path}
}

// openWithRecovery opens the key's workbook, recreating it from the template
// exactly once when the existing file is unreadable.
func (w *Writer) openWithRecovery(key string) (*excelize.File, string, error) {
	f, path, err := w.templates.OpenOrCreateWorkbook(w.layout.Kind, key)
	if err == nil {
		return f, path, nil
	}
	if !errors.Is(err, common.ErrCorruptedStore) {
		return nil, path, err
	}

	f, path, err = w.templates.RecreateWorkbook(w.layout.Kind, key)
	if err != nil {
		return nil, path, common.NewAppError("WORKBOOK_UNRECOVERABLE",
			"workbook corrupted and recreation failed", common.ErrCorruptedStore)
	}
	return f, path, nil
}

// ensureMonthSheet resolves the month sheet, matching existing names
// whitespace-insensitively, or copies a fresh one from the master sheet.
func (w *Writer) ensureMonthSheet(f *excelize.File, name string) (string, error) {
	desired := sanitizeSheetName(name)
	for _, existing := range f.GetSheetList() {
		if sanitizeSheetName(existing) == desired {
			return existing, nil
		}
	}

	master := MasterSheet
	if idx, err := f.GetSheetIndex(master); err != nil || idx == -1 {
		master = f.GetSheetList()[0]
	}
	srcIdx, err := f.GetSheetIndex(master)
	if err != nil {
		return "", common.WrapError(err, "resolve master sheet")
	}
	dstIdx, err := f.NewSheet(name)
	if err != nil {
		return "", common.WrapError(err, "create month sheet")
	}
	if err := f.CopySheet(srcIdx, dstIdx); err != nil {
		return "", common.WrapError(err, "copy master sheet")
	}
	w.logger.Info("ledger.sheet.created", "kind", w.layout.Kind, "sheet", name, "master", master)
	return name, nil
}

// hasDuplicateInvoice scans the layout's duplicate-detection column for an
// exact (trimmed, case-insensitive) invoice match.
func (w *Writer) hasDuplicateInvoice(f *excelize.File, sheet, invoice string) (bool, error) {
	target := strings.ToLower(strings.TrimSpace(invoice))
	if target == "" {
		return false, nil
	}

	end := w.layout.DataStartRow + w.layout.MaxScanRows
	for row := 1; row <= end; row++ {
		cell, err := excelize.CoordinatesToCellName(w.layout.Columns.Invoice, row)
		if err != nil {
			return false, common.WrapError(err, "invoice cell name")
		}
		val, err := f.GetCellValue(sheet, cell)
		if err != nil {
			return false, common.WrapError(err, "read invoice cell")
		}
		if strings.ToLower(strings.TrimSpace(val)) == target {
			return true, nil
		}
	}
	return false, nil
}

// findNextEmptyRow scans top-down from the data start for the first row whose
// key columns hold neither values nor formulas. Formula-bearing rows are
// permanently excluded from data placement, and rows are never inserted or
// shifted: the templates carry fixed cross-references that row insertion
// would break.
func (w *Writer) findNextEmptyRow(f *excelize.File, sheet string) (int, error) {
	footer, err := w.findFooterRow(f, sheet)
	if err != nil {
		return 0, err
	}

	end := w.layout.DataStartRow + w.layout.MaxScanRows
	if footer > 0 && footer <= end {
		end = footer - 1
	}

	for row := w.layout.DataStartRow; row <= end; row++ {
		usable := true
		for _, col := range w.layout.KeyColumns {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return 0, common.WrapError(err, "key cell name")
			}
			val, err := f.GetCellValue(sheet, cell)
			if err != nil {
				return 0, common.WrapError(err, "read key cell")
			}
			if strings.TrimSpace(val) != "" {
				usable = false
				break
			}
			formula, err := f.GetCellFormula(sheet, cell)
			if err != nil {
				return 0, common.WrapError(err, "read key cell formula")
			}
			if formula != "" {
				usable = false
				break
			}
		}
		if usable {
			return row, nil
		}
	}

	return 0, common.NewAppError("SHEET_FULL",
		fmt.Sprintf("no usable empty row in sheet %q", sheet), common.ErrInvalidInput)
}

// findFooterRow locates the totals/balance row bounding the data region, or 0
// when the sheet has none.
func (w *Writer) findFooterRow(f *excelize.File, sheet string) (int, error) {
	end := w.layout.DataStartRow + w.layout.MaxScanRows
	for row := w.layout.DataStartRow; row <= end; row++ {
		for col := 1; col <= 20; col++ {
			cell, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return 0, common.WrapError(err, "footer cell name")
			}
			val, err := f.GetCellValue(sheet, cell)
			if err != nil {
				return 0, common.WrapError(err, "read footer cell")
			}
			for _, label := range w.layout.FooterLabels {
				if strings.Contains(val, label) {
					return row, nil
				}
			}
		}
	}
	return 0, nil
}

func (w *Writer) writeRow(f *excelize.File, sheet string, row int, r entity.Receipt) error {
	set := func(col int, value any) error {
		if col == 0 || value == nil {
			return nil
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return common.WrapError(err, "data cell name")
		}
		return f.SetCellValue(sheet, cell, value)
	}

	cols := w.layout.Columns
	invoiceFlag := "無"
	if strings.TrimSpace(r.InvoiceNumber) != "" {
		invoiceFlag = "有"
	}

	writes := []struct {
		col   int
		value any
	}{
		{cols.Date, r.ReceiptDate},
		{cols.Vendor, composeDescription(r)},
		{cols.Staff, w.dir.StaffName(r.BusinessLocationID, r.StaffID)},
		{cols.Amount, r.TotalAmount},
		{cols.InvoiceFlag, invoiceFlag},
		{cols.Account, nilIfEmptyString(r.AccountTitle)},
		{cols.Tax10, derefAmount(r.Tax10Amount)},
		{cols.Tax8, derefAmount(r.Tax8Amount)},
		{cols.Invoice, nilIfEmptyString(r.InvoiceNumber)},
	}
	for _, wr := range writes {
		if err := set(wr.col, wr.value); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) lockWorkbook(key string) func() {
	w.mu.Lock()
	lock, ok := w.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[key] = lock
	}
	w.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (w *Writer) classify(key, path string, err error) Result {
	res := Result{Status: StatusError, Key: key, FilePath: path, Err: err.Error()}
	switch {
	case errors.Is(err, common.ErrResourceLocked):
		res.Code = CodeResourceLocked
	case errors.Is(err, common.ErrPermissionDenied):
		res.Code = CodePermissionDenied
	case errors.Is(err, common.ErrCorruptedStore):
		res.Code = CodeCorruptedStore
	default:
		res.Code = CodeWriteFailed
	}
	w.logger.Error("ledger.write.failed",
		"kind", w.layout.Kind, "key", key, "code", res.Code, "error", err)
	return res
}

// classifySaveError maps a workbook save failure onto the taxonomy: a file
// held open by another process is transient, a permission failure is fatal
// for this write.
func classifySaveError(err error) error {
	switch {
	case errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EACCES):
		return common.NewAppError("WORKBOOK_FORBIDDEN", "workbook not writable", common.ErrPermissionDenied)
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK),
		strings.Contains(strings.ToLower(err.Error()), "locked"),
		strings.Contains(strings.ToLower(err.Error()), "being used by another process"):
		return common.NewAppError("WORKBOOK_LOCKED", "workbook locked by another writer", common.ErrResourceLocked)
	default:
		return common.WrapError(err, "save workbook")
	}
}

func composeDescription(r entity.Receipt) string {
	if r.VendorName != "" && r.Memo != "" {
		return r.VendorName + " / " + r.Memo
	}
	if r.VendorName != "" {
		return r.VendorName
	}
	return r.Memo
}

func sanitizeSheetName(name string) string {
	return strings.Join(strings.Fields(name), "")
}

func nilIfEmptyString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func derefAmount(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
