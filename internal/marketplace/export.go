package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sudo-init-do/servicehub/internal/user"
)

const bidSheet = "Bids"

// ExportBids renders the owner's bid comparison sheet as an XLSX workbook.
func (s *Service) ExportBids(ctx context.Context, requestID string, actor user.User) (string, []byte, error) {
	r, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", nil, err
	}
	if err := requireOwner(r, actor); err != nil {
		return "", nil, err
	}
	bids, err := s.store.ListBids(ctx, requestID)
	if err != nil {
		return "", nil, err
	}

	data, err := writeBidSheet(r, bids)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("bids-%s.xlsx", r.ID), data, nil
}

func writeBidSheet(r ServiceRequest, bids []Bid) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", bidSheet); err != nil {
		return nil, err
	}
	set := func(cell string, value any) {
		_ = file.SetCellValue(bidSheet, cell, value)
	}

	set("A1", "Request")
	set("B1", r.Title)
	set("A2", "Category")
	set("B2", r.Category)
	set("A3", "Status")
	set("B3", string(r.Status))
	set("A4", "Bids")
	set("B4", len(bids))

	tableRow := 6
	headers := []string{"Provider", "Price", "Status", "Start date", "Duration", "Submitted", "Proposal"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	for i, b := range bids {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), b.ProviderName)
		set(fmt.Sprintf("B%d", row), b.Price)
		set(fmt.Sprintf("C%d", row), string(b.Status))
		set(fmt.Sprintf("D%d", row), formatDate(b.StartDate))
		set(fmt.Sprintf("E%d", row), b.EstimatedDuration)
		set(fmt.Sprintf("F%d", row), b.CreatedAt.Format("2006-01-02 15:04"))
		set(fmt.Sprintf("G%d", row), b.Proposal)
	}

	_ = file.SetColWidth(bidSheet, "A", "A", 28)
	_ = file.SetColWidth(bidSheet, "B", "F", 16)
	_ = file.SetColWidth(bidSheet, "G", "G", 60)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
