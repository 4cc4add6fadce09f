package core

import (
	"context"
	"time"
)

// ReportHandle is the identifier a report collaborator assigns to a generated report.
type ReportHandle string

// SlotBundle is one validated slot as handed to a report collaborator.
type SlotBundle struct {
	Upload RawUpload
	Table  *Table
}

// Bundle carries both validated slots.
type Bundle struct {
	Operational SlotBundle
	Base        SlotBundle
}

// Generator produces and stores a report from a bundle.
type Generator interface {
	Generate(ctx context.Context, b Bundle) (ReportHandle, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, b Bundle) (ReportHandle, error)

func (f GeneratorFunc) Generate(ctx context.Context, b Bundle) (ReportHandle, error) {
	return f(ctx, b)
}

// GenerateReport hands b to g. Failures are returned as KindGenerateFailed.
func GenerateReport(ctx context.Context, g Generator, b Bundle) (ReportHandle, error) {
	handle, err := g.Generate(ctx, b)
	if err != nil {
		return "", newError(KindGenerateFailed, "", err)
	}
	return handle, nil
}

// Layouts used in history records.
const (
	HistoryDateLayout = "2006-01-02"
	HistoryTimeLayout = "15:04:05"
)

// HistoryRecord is the data a history collaborator needs after a report was generated.
type HistoryRecord struct {
	EmployeeName string       `json:"employeeName"`
	FileName     string       `json:"fileName"`
	Date         string       `json:"date"`
	Time         string       `json:"time"`
	ReportHandle ReportHandle `json:"reportHandle"`
}

// NewHistoryRecord builds the record for a report generated from b at time at.
// The operational upload names the record.
func NewHistoryRecord(employee string, b Bundle, handle ReportHandle, at time.Time) HistoryRecord {
	return HistoryRecord{
		EmployeeName: employee,
		FileName:     b.Operational.Upload.FileName,
		Date:         at.Format(HistoryDateLayout),
		Time:         at.Format(HistoryTimeLayout),
		ReportHandle: handle,
	}
}
