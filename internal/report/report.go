// Package report accumulates the audit record of a pipeline run.
package report

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"fabriq-content/internal/chrono"
	"fabriq-content/lib/fsutil"
)

// TimeFormat is ISO-8601 in UTC with millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z"

type Outcome struct {
	Factory string `json:"factory"`
	URL     string `json:"url"`
	Parsed  int    `json:"parsed"`
	Saved   int    `json:"saved"`
}

type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []Outcome
	Warnings   []string
}

type document struct {
	StartedAt  string    `json:"startedAt"`
	FinishedAt string    `json:"finishedAt"`
	Sources    []Outcome `json:"sources"`
	Warnings   []string  `json:"warnings"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	doc := document{
		StartedAt:  r.StartedAt.UTC().Format(TimeFormat),
		FinishedAt: r.FinishedAt.UTC().Format(TimeFormat),
		Sources:    r.Sources,
		Warnings:   r.Warnings,
	}
	if doc.Sources == nil {
		doc.Sources = []Outcome{}
	}
	if doc.Warnings == nil {
		doc.Warnings = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(doc)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Report) UnmarshalJSON(contents []byte) error {
	var doc document
	err := json.Unmarshal(contents, &doc)
	if err != nil {
		return err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, doc.StartedAt)
	if err != nil {
		return err
	}
	finishedAt, err := time.Parse(time.RFC3339Nano, doc.FinishedAt)
	if err != nil {
		return err
	}

	*r = Report{
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Sources:    doc.Sources,
		Warnings:   doc.Warnings,
	}
	return nil
}

// Reporter is owned by a single run, it is not safe for concurrent use.
type Reporter struct {
	clock  chrono.TimeAPI
	report Report
}

// New starts a report, the start time is taken now.
func New(clock chrono.TimeAPI) *Reporter {
	return &Reporter{
		clock: clock,
		report: Report{
			StartedAt: clock.Now(),
			Sources:   []Outcome{},
			Warnings:  []string{},
		},
	}
}

func (r *Reporter) Record(outcome Outcome) {
	r.report.Sources = append(r.report.Sources, outcome)
}

func (r *Reporter) Warn(warning string) {
	r.report.Warnings = append(r.report.Warnings, warning)
}

// Finish stamps the finish time and returns the completed report.
func (r *Reporter) Finish() Report {
	r.report.FinishedAt = r.clock.Now()

	out := r.report
	out.Sources = append([]Outcome{}, r.report.Sources...)
	out.Warnings = append([]string{}, r.report.Warnings...)
	return out
}

// Write renders the report as indented json and writes it atomically.
func Write(path string, r Report) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(r)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0644)
}

// Read loads a report written by Write.
func Read(path string) (Report, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var r Report
	err = json.Unmarshal(contents, &r)
	return r, err
}
