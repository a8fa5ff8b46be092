package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-ledger/internal/common"
)

// MasterSheet is the pristine month-sheet template inside every workbook.
// New month sheets are copied from it.
const MasterSheet = "原本"

// Templates materializes destination workbooks from base template files.
// Base templates are never mutated in place.
type Templates struct {
	branchDir      string
	staffDir       string
	branchTemplate string
	staffTemplate  string
	logger         *slog.Logger
}

// NewTemplates returns a template provider rooted at the configured ledger
// directories.
func NewTemplates(cfg common.LedgerConfig, logger *slog.Logger) *Templates {
	if logger == nil {
		logger = slog.Default()
	}
	return &Templates{
		branchDir:      cfg.BranchDir,
		staffDir:       cfg.StaffDir,
		branchTemplate: cfg.BranchTemplate,
		staffTemplate:  cfg.StaffTemplate,
		logger:         logger,
	}
}

// WorkbookPath is the canonical on-disk location for a ledger key.
func (t *Templates) WorkbookPath(kind Kind, key string) string {
	if kind == KindStaff {
		return filepath.Join(t.staffDir, fmt.Sprintf("%s_accumulated.xlsx", safeFilename(key)))
	}
	return filepath.Join(t.branchDir, fmt.Sprintf("%s_accumulated.xlsx", safeFilename(key)))
}

// OpenOrCreateWorkbook opens the workbook for key, copying the base template
// first when the file does not exist yet.
func (t *Templates) OpenOrCreateWorkbook(kind Kind, key string) (*excelize.File, string, error) {
	path := t.WorkbookPath(kind, key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := t.materialize(kind, path); err != nil {
			return nil, path, err
		}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, path, common.NewAppError("WORKBOOK_CORRUPTED", "cannot open workbook", common.ErrCorruptedStore)
	}
	return f, path, nil
}

// RecreateWorkbook deletes a corrupted workbook and materializes a fresh copy
// from the base template. Any accumulated rows in the old file are lost; the
// caller gets exactly one shot at this before giving up.
func (t *Templates) RecreateWorkbook(kind Kind, key string) (*excelize.File, string, error) {
	path := t.WorkbookPath(kind, key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		t.logger.Error("failed to remove corrupted workbook", "path", path, "error", err)
		return nil, path, common.WrapError(err, "remove corrupted workbook")
	}
	t.logger.Warn("recreating corrupted workbook from template", "path", path)
	return t.OpenOrCreateWorkbook(kind, key)
}

func (t *Templates) materialize(kind Kind, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return common.WrapError(err, "create ledger directory")
	}

	template := t.branchTemplate
	if kind == KindStaff {
		template = t.staffTemplate
	}
	if _, err := os.Stat(template); err == nil {
		if err := copyFile(template, dest); err != nil {
			return common.WrapError(err, "copy base template")
		}
		t.logger.Info("workbook created from template", "path", dest, "template", template)
		return nil
	}

	// No base template provisioned. Starter workbooks keep local setups and
	// tests working; production deployments ship real templates.
	layout := BranchLayout()
	if kind == KindStaff {
		layout = StaffLayout()
	}
	if err := WriteStarterTemplate(dest, layout); err != nil {
		return err
	}
	t.logger.Info("workbook created from starter template", "path", dest)
	return nil
}

// WriteStarterTemplate writes a minimal workbook with a master month sheet:
// header rows above the data region and a footer totals row below it.
func WriteStarterTemplate(path string, layout Layout) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(MasterSheet)
	if err != nil {
		return common.WrapError(err, "create master sheet")
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return common.WrapError(err, "remove default sheet")
	}

	headerRow := layout.DataStartRow - 1
	for label, col := range map[string]int{
		"支払日":    layout.Columns.Date,
		"摘要":     layout.Columns.Vendor,
		"担当者":    layout.Columns.Staff,
		"支出":     layout.Columns.Amount,
		"インボイス":  layout.Columns.InvoiceFlag,
		"勘定科目":   layout.Columns.Account,
		"10%税額":  layout.Columns.Tax10,
		"8%税額":   layout.Columns.Tax8,
		"登録番号":   layout.Columns.Invoice,
	} {
		if col == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col, headerRow)
		if err != nil {
			return common.WrapError(err, "header cell name")
		}
		if err := f.SetCellValue(MasterSheet, cell, label); err != nil {
			return common.WrapError(err, "write header")
		}
	}

	footerRow := layout.DataStartRow + 50
	footerCell, err := excelize.CoordinatesToCellName(1, footerRow)
	if err != nil {
		return common.WrapError(err, "footer cell name")
	}
	if err := f.SetCellValue(MasterSheet, footerCell, "合計"); err != nil {
		return common.WrapError(err, "write footer")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.WrapError(err, "create template directory")
	}
	if err := f.SaveAs(path); err != nil {
		return common.WrapError(err, "save starter template")
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func safeFilename(name string) string {
	safe := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			safe = append(safe, '_')
		default:
			safe = append(safe, r)
		}
	}
	return string(safe)
}
