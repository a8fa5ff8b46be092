// Package gate evaluates the ready-to-send contract: the rules a draft's
// receipt must satisfy before any ledger write is attempted.
package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/receipt-ledger/internal/common"
	"github.com/joseph-ayodele/receipt-ledger/internal/directory"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

// Result is the outcome of one assessment. Errors contains every violated
// rule, in field declaration order, not just the first one found.
type Result struct {
	Ready  bool     `json:"ready"`
	Errors []string `json:"errors"`
}

// Gate is a pure rule evaluator. Assess never mutates the receipt it inspects
// and yields identical results for an unmutated receipt.
type Gate struct {
	dir directory.Directory
}

// New returns a gate backed by the given location/staff directory.
func New(dir directory.Directory) *Gate {
	return &Gate{dir: dir}
}

// Assess checks every rule of the ready-to-send contract and accumulates all
// violations. Rule order is fixed: location, staff, vendor, date, total,
// tax amounts. image_ref is deliberately exempt; manual entries have none.
func (g *Gate) Assess(r entity.Receipt) Result {
	v := common.NewValidator()

	if strings.TrimSpace(r.BusinessLocationID) == "" {
		v.Add("business_location_id", r.BusinessLocationID, "is required")
	} else if !g.dir.IsValidLocation(r.BusinessLocationID) {
		v.Add("business_location_id", r.BusinessLocationID,
			fmt.Sprintf("%q is not a known location (valid: %s)",
				r.BusinessLocationID, strings.Join(g.dir.LocationIDs(), ", ")))
	}

	if strings.TrimSpace(r.StaffID) == "" {
		v.Add("staff_id", r.StaffID, "is required")
	} else if strings.TrimSpace(r.BusinessLocationID) != "" &&
		!g.dir.IsValidStaffForLocation(r.BusinessLocationID, r.StaffID) {
		v.Add("staff_id", r.StaffID,
			fmt.Sprintf("%q is not valid for location %q", r.StaffID, r.BusinessLocationID))
	}

	v.Field("vendor_name", r.VendorName, common.Required)

	if strings.TrimSpace(r.ReceiptDate) == "" {
		v.Add("receipt_date", r.ReceiptDate, "is required")
	} else if date, err := time.Parse("2006-01-02", r.ReceiptDate); err != nil {
		v.Add("receipt_date", r.ReceiptDate,
			fmt.Sprintf("has invalid format (must be YYYY-MM-DD), got %q", r.ReceiptDate))
	} else {
		if date.After(endOfToday()) {
			v.Add("receipt_date", r.ReceiptDate, "cannot be in the future")
		}
		if date.Year() < 2000 {
			v.Add("receipt_date", r.ReceiptDate, "is unreasonably old (pre-2000)")
		}
	}

	v.Field("total_amount", r.TotalAmount, common.Positive)
	v.Field("tax_10_amount", r.Tax10Amount, common.NonNegative)
	v.Field("tax_8_amount", r.Tax8Amount, common.NonNegative)

	errs := v.Messages()
	return Result{Ready: len(errs) == 0, Errors: errs}
}

func endOfToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
}
