package telemetry

import (
	"sync"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityWarning
	SeverityBroken
	SeverityCount
)

type Report struct {
	Severity Severity
	// the id for broken/warning/count reports, the message for debug reports
	ID     string
	Params []any
	Count  int64
}

// RecorderAPI keeps every report in memory so tests can assert on what a
// component logged.
type RecorderAPI struct {
	mu      sync.Mutex
	reports []Report
}

func NewRecorderAPI() *RecorderAPI {
	return &RecorderAPI{}
}

func (r *RecorderAPI) add(report Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.add(Report{Severity: SeverityBroken, ID: id, Params: params})
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.add(Report{Severity: SeverityWarning, ID: id, Params: params})
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.add(Report{Severity: SeverityDebug, ID: msg, Params: params})
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.add(Report{Severity: SeverityCount, ID: id, Count: count})
}

// Reports returns a copy of the reports matching severity and id.
func (r *RecorderAPI) Reports(severity Severity, id string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Severity == severity && report.ID == id {
			out = append(out, report)
		}
	}
	return out
}

func (r *RecorderAPI) All() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report{}, r.reports...)
}
