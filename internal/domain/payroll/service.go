// Package payroll turns completed attendance into monthly pay entries
// and renders payslip PDFs.
package payroll

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jung-kurt/gofpdf"

	"guardsync/internal/domain/guards"
)

// StoreAPI is the persistence subset the service drives.
type StoreAPI interface {
	Upsert(ctx context.Context, guardID string, year, month, daysWorked int, dailyRate, total float64) (Entry, error)
	GetByID(ctx context.Context, orgID, entryID string) (Entry, error)
	List(ctx context.Context, orgID string, year, month int) ([]Entry, error)
	SetStatus(ctx context.Context, entryID, status string) error
}

// GuardLister enumerates the guards a payroll run covers.
type GuardLister interface {
	List(ctx context.Context, orgID string, siteID, status string) ([]guards.Guard, error)
}

// DaysSource counts a guard's worked days in a month.
type DaysSource interface {
	DaysWorked(ctx context.Context, guardID string, year, month int) (int, error)
}

type Service struct {
	store   StoreAPI
	guards  GuardLister
	days    DaysSource
	orgName func(ctx context.Context, orgID string) (string, error)
}

func NewService(store StoreAPI, guardLister GuardLister, days DaysSource, orgName func(ctx context.Context, orgID string) (string, error)) *Service {
	return &Service{store: store, guards: guardLister, days: days, orgName: orgName}
}

// Generate upserts a draft entry per active guard for the month.
// Entries already approved or paid keep their figures.
func (s *Service) Generate(ctx context.Context, orgID string, year, month int) ([]Entry, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, ErrBadPeriod
	}
	active, err := s.guards.List(ctx, orgID, "", guards.ApprovalActive)
	if err != nil {
		return nil, fmt.Errorf("list guards: %w", err)
	}

	entries := make([]Entry, 0, len(active))
	for _, g := range active {
		days, err := s.days.DaysWorked(ctx, g.ID, year, month)
		if err != nil {
			return nil, fmt.Errorf("days worked for %s: %w", g.ID, err)
		}
		entry, err := s.store.Upsert(ctx, g.ID, year, month, days, g.DailyRate, float64(days)*g.DailyRate)
		if err != nil {
			return nil, fmt.Errorf("upsert entry for %s: %w", g.ID, err)
		}
		entry.GuardName = g.Name
		entries = append(entries, entry)
	}
	slog.Info("payroll generated", "orgId", orgID, "year", year, "month", month, "entries", len(entries))
	return entries, nil
}

func (s *Service) List(ctx context.Context, orgID string, year, month int) ([]Entry, error) {
	if month < 1 || month > 12 {
		return nil, ErrBadPeriod
	}
	return s.store.List(ctx, orgID, year, month)
}

// UpdateStatus advances an entry along draft, approved, paid.
func (s *Service) UpdateStatus(ctx context.Context, orgID, entryID, status string) (Entry, error) {
	entry, err := s.store.GetByID(ctx, orgID, entryID)
	if err != nil {
		return Entry{}, err
	}
	if !CanTransition(entry.Status, status) {
		return Entry{}, ErrBadTransition
	}
	if err := s.store.SetStatus(ctx, entryID, status); err != nil {
		return Entry{}, err
	}
	entry.Status = status
	slog.Info("payroll status updated", "entryId", entryID, "status", status)
	return entry, nil
}

// PayslipPDF renders an entry as a downloadable payslip.
func (s *Service) PayslipPDF(ctx context.Context, orgID, entryID string) ([]byte, Entry, error) {
	entry, err := s.store.GetByID(ctx, orgID, entryID)
	if err != nil {
		return nil, Entry{}, err
	}
	name, err := s.orgName(ctx, orgID)
	if err != nil {
		return nil, Entry{}, err
	}

	period := time.Date(entry.Year, time.Month(entry.Month), 1, 0, 0, 0, 0, time.UTC)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Organization: %s", name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Guard: %s", entry.GuardName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", period.Format("January 2006")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Days worked: %d", entry.DaysWorked))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Daily rate: %.2f", entry.DailyRate))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", entry.Total))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", entry.Status))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Entry{}, err
	}
	return buf.Bytes(), entry, nil
}
