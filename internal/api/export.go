/**
 * @description
 * XLSX export of the aggregated user views. One workbook per user with a Summary
 * sheet followed by one sheet per collection.
 *
 * @dependencies
 * - github.com/xuri/excelize/v2: Workbook generation.
 */
package api

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/helparo/admin-service/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	orderHeaders    = []string{"Order ID", "Title", "Status", "Category", "Estimated Price", "Final Price", "Payment Method", "Payment Status", "Helper", "Address", "Created At", "Completed At"}
	loginHeaders    = []string{"Time", "Success", "IP Address", "Location", "User Agent", "Failure Reason"}
	referralHeaders = []string{"Referral ID", "Name", "Email", "Role", "Status", "Reward", "Created At"}
	earningHeaders  = []string{"Time", "Type", "Amount", "Description", "Request ID"}
)

type workbook struct {
	f           *excelize.File
	headerStyle int
	sheets      int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &workbook{f: f, headerStyle: style}, nil
}

// addSheet writes headers and rows to a new sheet. The first sheet reuses the default one.
func (w *workbook) addSheet(name string, headers []string, rows [][]interface{}) error {
	if w.sheets == 0 {
		if err := w.f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	w.sheets++

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", name, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := w.f.SetColWidth(name, "A", lastCol, 20); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(name, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

func (w *workbook) bytes() ([]byte, error) {
	defer w.f.Close()
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// CustomerWorkbook renders a customer view as an XLSX file.
func CustomerWorkbook(d *domain.CustomerFullDetails) ([]byte, error) {
	w, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	if err := writeCustomerSheets(w, d, customerSummary(d)); err != nil {
		w.f.Close()
		return nil, err
	}
	return w.bytes()
}

// HelperWorkbook renders a helper view as an XLSX file, adding the earnings history.
func HelperWorkbook(d *domain.HelperFullDetails) ([]byte, error) {
	w, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	summary := append(customerSummary(&d.CustomerFullDetails), helperSummary(d)...)
	if err := writeCustomerSheets(w, &d.CustomerFullDetails, summary); err != nil {
		w.f.Close()
		return nil, err
	}

	earnings := make([][]interface{}, 0, len(d.EarningsHistory))
	for _, e := range d.EarningsHistory {
		earnings = append(earnings, []interface{}{formatTime(e.CreatedAt), e.Type, e.Amount, strValue(e.Description), strValue(e.RequestID)})
	}
	if err := w.addSheet("Earnings", earningHeaders, earnings); err != nil {
		w.f.Close()
		return nil, err
	}
	return w.bytes()
}

func writeCustomerSheets(w *workbook, d *domain.CustomerFullDetails, summary [][]interface{}) error {
	if err := w.addSheet("Summary", []string{"Field", "Value"}, summary); err != nil {
		return err
	}

	orders := make([][]interface{}, 0, len(d.Orders))
	for _, o := range d.Orders {
		orders = append(orders, []interface{}{
			o.ID, o.Title, o.Status, strValue(o.CategoryName),
			floatValue(o.EstimatedPrice), floatValue(o.FinalPrice),
			strValue(o.PaymentMethod), strValue(o.PaymentStatus), strValue(o.HelperName),
			strValue(o.Address), formatTime(o.CreatedAt), timeValue(o.CompletedAt),
		})
	}
	if err := w.addSheet("Orders", orderHeaders, orders); err != nil {
		return err
	}

	logins := make([][]interface{}, 0, len(d.LoginHistory))
	for _, l := range d.LoginHistory {
		logins = append(logins, []interface{}{
			formatTime(l.CreatedAt), l.Success, strValue(l.IPAddress), strValue(l.Location),
			strValue(l.UserAgent), strValue(l.FailureReason),
		})
	}
	if err := w.addSheet("Logins", loginHeaders, logins); err != nil {
		return err
	}

	referrals := make([][]interface{}, 0, len(d.Referrals))
	for _, r := range d.Referrals {
		referrals = append(referrals, []interface{}{
			r.ID, strValue(r.ReferredName), strValue(r.ReferredEmail), strValue(r.ReferredRole),
			r.Status, floatValue(r.RewardAmount), formatTime(r.CreatedAt),
		})
	}
	return w.addSheet("Referrals", referralHeaders, referrals)
}

func customerSummary(d *domain.CustomerFullDetails) [][]interface{} {
	return [][]interface{}{
		{"ID", d.ID},
		{"Name", strValue(d.FullName)},
		{"Email", d.Email},
		{"Phone", strValue(d.Phone)},
		{"Role", d.Role},
		{"Status", d.Status},
		{"Banned", d.IsBanned},
		{"City", strValue(d.City)},
		{"Joined", formatTime(d.CreatedAt)},
		{"Last Login", timeValue(d.LastLoginAt)},
		{"Failed Logins (24h)", d.FailedLoginAttempts},
		{"Total Orders", d.TotalOrders},
		{"Completed Orders", d.CompletedOrders},
		{"Cancelled Orders", d.CancelledOrders},
		{"Pending Orders", d.PendingOrders},
		{"Total Spent", d.TotalSpent},
		{"Preferred Payment Method", strValue(d.PreferredPaymentMethod)},
		{"Total Referrals", d.TotalReferrals},
		{"Successful Referrals", d.SuccessfulReferrals},
		{"Referral Earnings", d.ReferralEarnings},
		{"Wallet Balance", d.WalletBalance},
		{"Loyalty Points", d.LoyaltyPoints},
	}
}

func helperSummary(d *domain.HelperFullDetails) [][]interface{} {
	rate := ""
	if d.CompletionRate != nil {
		rate = fmt.Sprintf("%d%%", *d.CompletionRate)
	}
	return [][]interface{}{
		{"Approved", d.IsApproved},
		{"Verification Status", strValue(d.VerificationStatus)},
		{"Jobs Assigned", d.TotalJobsAssigned},
		{"Jobs Completed", d.TotalJobsCompleted},
		{"Completion Rate", rate},
		{"Total Earnings", d.TotalEarnings},
		{"Average Rating", d.AverageRating},
		{"Total Reviews", d.TotalReviews},
		{"Trust Score", floatValue(d.TrustScore)},
	}
}

func strValue(s *string) interface{} {
	if s == nil {
		return ""
	}
	return *s
}

func floatValue(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func timeValue(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
