package gate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-ledger/internal/directory"
	"github.com/joseph-ayodele/receipt-ledger/internal/entity"
)

func testDirectory() directory.Directory {
	return directory.FromLocations(
		directory.Location{
			ID:   "LOC-001",
			Name: "Shinjuku Branch",
			Staff: []directory.Staff{
				{ID: "STF-001", Name: "Tanaka"},
				{ID: "STF-002", Name: "Sato"},
			},
		},
		directory.Location{
			ID:    "LOC-002",
			Name:  "Osaka Branch",
			Staff: []directory.Staff{{ID: "STF-003", Name: "Suzuki"}},
		},
	)
}

func validReceipt() entity.Receipt {
	tax10 := 100.0
	return entity.Receipt{
		VendorName:         "Suido Kogyo KK",
		ReceiptDate:        "2026-02-10",
		TotalAmount:        1100,
		Tax10Amount:        &tax10,
		InvoiceNumber:      "T1234567890123",
		BusinessLocationID: "LOC-001",
		StaffID:            "STF-001",
	}
}

func TestAssessReadyReceipt(t *testing.T) {
	g := New(testDirectory())

	res := g.Assess(validReceipt())

	assert.True(t, res.Ready)
	assert.Empty(t, res.Errors)
}

func TestAssessMissingImageRefIsNotChecked(t *testing.T) {
	// image_ref lives on the draft, not on the receipt contract.
	g := New(testDirectory())

	res := g.Assess(validReceipt())
	assert.True(t, res.Ready)
}

func TestAssessAccumulatesAllErrors(t *testing.T) {
	g := New(testDirectory())

	res := g.Assess(entity.Receipt{})

	require.False(t, res.Ready)
	// Every broken field is reported in a single pass, in check order.
	require.Len(t, res.Errors, 5)
	assert.Contains(t, res.Errors[0], "business_location_id")
	assert.Contains(t, res.Errors[1], "staff_id")
	assert.Contains(t, res.Errors[2], "vendor_name")
	assert.Contains(t, res.Errors[3], "receipt_date")
	assert.Contains(t, res.Errors[4], "total_amount")
}

func TestAssessUnknownLocationListsValidIDs(t *testing.T) {
	g := New(testDirectory())

	r := validReceipt()
	r.BusinessLocationID = "LOC-999"
	res := g.Assess(r)

	require.False(t, res.Ready)
	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, "LOC-999")
	assert.Contains(t, joined, "LOC-001")
	assert.Contains(t, joined, "LOC-002")
}

func TestAssessStaffNotOnLocationRoster(t *testing.T) {
	g := New(testDirectory())

	r := validReceipt()
	r.StaffID = "STF-003" // belongs to LOC-002, not LOC-001
	res := g.Assess(r)

	require.False(t, res.Ready)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "staff_id")
	assert.Contains(t, res.Errors[0], "LOC-001")
}

func TestAssessStaffSkippedWhenLocationMissing(t *testing.T) {
	g := New(testDirectory())

	r := validReceipt()
	r.BusinessLocationID = ""
	res := g.Assess(r)

	require.False(t, res.Ready)
	// Membership cannot be judged without a location; only presence is reported.
	for _, msg := range res.Errors {
		assert.NotContains(t, msg, "not valid for location")
	}
}

func TestAssessDateRules(t *testing.T) {
	g := New(testDirectory())

	tests := []struct {
		name string
		date string
		want string
	}{
		{"malformed", "10/02/2026", "invalid format"},
		{"future", time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"), "future"},
		{"pre-2000", "1999-12-31", "pre-2000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReceipt()
			r.ReceiptDate = tt.date
			res := g.Assess(r)

			require.False(t, res.Ready)
			assert.Contains(t, strings.Join(res.Errors, "\n"), tt.want)
		})
	}
}

func TestAssessTodayIsNotFuture(t *testing.T) {
	g := New(testDirectory())

	r := validReceipt()
	r.ReceiptDate = time.Now().UTC().Format("2006-01-02")
	res := g.Assess(r)

	assert.True(t, res.Ready)
}

func TestAssessAmountRules(t *testing.T) {
	g := New(testDirectory())

	r := validReceipt()
	r.TotalAmount = 0
	res := g.Assess(r)
	require.False(t, res.Ready)
	assert.Contains(t, res.Errors[0], "total_amount")

	r = validReceipt()
	negative := -8.0
	r.Tax8Amount = &negative
	res = g.Assess(r)
	require.False(t, res.Ready)
	assert.Contains(t, res.Errors[0], "tax_8_amount")

	// Tax amounts are optional; absence alone never blocks a send.
	r = validReceipt()
	r.Tax10Amount = nil
	r.Tax8Amount = nil
	assert.True(t, g.Assess(r).Ready)
}

func TestAssessIsPure(t *testing.T) {
	g := New(testDirectory())
	r := validReceipt()
	before := r

	_ = g.Assess(r)
	_ = g.Assess(r)

	assert.Equal(t, before, r)
}
