// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package query answers ad-hoc aggregate questions over an anonymized
// frame through an in-memory SQLite database. Only pre-baked statements
// run: values travel as bind parameters, and column names are checked
// against the loaded frame before they reach any SQL text.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"studio-analytics/internal/dataset"
	"studio-analytics/internal/ingest"
)

// Derived columns added at load so groupings do not depend on SQLite's
// datetime parsing. The names cannot collide with export columns, which
// never start with an underscore.
const (
	colDate    = "_date"
	colWeekday = "_weekday"
	colHour    = "_hour"
)

// numericColumns are stored REAL; everything else is TEXT.
var numericColumns = map[string]bool{
	"Actual_Session_Length": true,
	"Duration_Minutes":      true,
	"Pre_Confidence":        true,
	"Post_Confidence":       true,
	"Overall_Satisfaction":  true,
	"Tutor_Rating":          true,
}

// Filter restricts a query to rows whose column equals Value. An empty
// Value matches null cells.
type Filter struct {
	Column string
	Value  string
}

// DateCount is a session tally for one calendar date.
type DateCount struct {
	Date     string
	Sessions int
}

// WeekdayCount is a session tally for one day of the week.
type WeekdayCount struct {
	Weekday  string
	Sessions int
}

// HourCount is a session tally for one hour of day.
type HourCount struct {
	Hour     int
	Sessions int
}

// ValueCount is an occurrence tally for one column value.
type ValueCount struct {
	Value    string
	Sessions int
}

// DateSummary describes activity on a single date.
type DateSummary struct {
	Date               string
	Sessions           int
	UniqueStudents     int
	AvgDurationMinutes float64
}

// Engine holds the loaded table and its column inventory.
type Engine struct {
	db      *sql.DB
	columns map[string]bool
}

// New loads the frame into a fresh in-memory database. The connection
// pool is pinned to one connection so the memory database is shared by
// every statement.
func New(f *dataset.Frame) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	e := &Engine{db: db, columns: map[string]bool{}}
	if err := e.load(f); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the database.
func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) load(f *dataset.Frame) error {
	cols := f.Columns()
	defs := make([]string, 0, len(cols)+3)
	for _, col := range cols {
		e.columns[col] = true
		kind := "TEXT"
		if numericColumns[col] {
			kind = "REAL"
		}
		defs = append(defs, quoteIdent(col)+" "+kind)
	}
	defs = append(defs,
		quoteIdent(colDate)+" TEXT",
		quoteIdent(colWeekday)+" TEXT",
		quoteIdent(colHour)+" INTEGER",
	)

	create := "CREATE TABLE sessions (" + strings.Join(defs, ", ") + ")"
	if _, err := e.db.Exec(create); err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	placeholders := strings.Repeat("?, ", len(defs))
	insert := "INSERT INTO sessions VALUES (" + strings.TrimSuffix(placeholders, ", ") + ")"

	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	dateCol := ""
	for _, candidate := range []string{"Appointment_DateTime", "Check_In_DateTime"} {
		if f.HasColumn(candidate) {
			dateCol = candidate
			break
		}
	}

	for i := 0; i < f.NumRows(); i++ {
		row := f.Row(i)
		args := make([]any, 0, len(defs))
		for j, col := range cols {
			args = append(args, cellValue(col, row[j]))
		}
		args = append(args, derivedDate(f, dateCol, i)...)
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("loading row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// cellValue maps a frame cell to its SQL value: nulls become NULL, and
// numeric columns must parse or they degrade to NULL rather than 0.
func cellValue(col, raw string) any {
	raw = strings.TrimSpace(raw)
	if dataset.IsNull(raw) {
		return nil
	}
	if numericColumns[col] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return v
	}
	return raw
}

func derivedDate(f *dataset.Frame, dateCol string, row int) []any {
	if dateCol == "" {
		return []any{nil, nil, nil}
	}
	cell, err := f.Cell(row, dateCol)
	if err != nil {
		return []any{nil, nil, nil}
	}
	t, ok := ingest.ParseDateTime(cell)
	if !ok {
		return []any{nil, nil, nil}
	}
	return []any{t.Format("2006-01-02"), t.Weekday().String(), t.Hour()}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// checkColumn rejects identifiers that are not loaded frame columns.
func (e *Engine) checkColumn(name string) error {
	if !e.columns[name] {
		return fmt.Errorf("unknown column %q", name)
	}
	return nil
}

// whereClause renders filters as a parameterized WHERE fragment.
func (e *Engine) whereClause(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, flt := range filters {
		if err := e.checkColumn(flt.Column); err != nil {
			return "", nil, err
		}
		col := quoteIdent(flt.Column)
		if flt.Value == "" {
			clauses = append(clauses, "("+col+" IS NULL OR "+col+" = '')")
			continue
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, flt.Value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// CountSessions counts rows matching every filter.
func (e *Engine) CountSessions(ctx context.Context, filters ...Filter) (int, error) {
	where, args, err := e.whereClause(filters)
	if err != nil {
		return 0, err
	}
	var n int
	err = e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

// SessionsOnDate summarizes one calendar date (2006-01-02 format).
func (e *Engine) SessionsOnDate(ctx context.Context, date string) (DateSummary, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return DateSummary{}, fmt.Errorf("date must look like 2006-01-02, got %q", date)
	}

	studentExpr := "0"
	if e.columns["Student_Anon_ID"] {
		studentExpr = `COUNT(DISTINCT "Student_Anon_ID")`
	}
	durationExpr := "NULL"
	switch {
	case e.columns["Actual_Session_Length"]:
		durationExpr = `AVG("Actual_Session_Length") * 60`
	case e.columns["Duration_Minutes"]:
		durationExpr = `AVG("Duration_Minutes")`
	}

	q := "SELECT COUNT(*), " + studentExpr + ", " + durationExpr +
		" FROM sessions WHERE " + quoteIdent(colDate) + " = ?"

	var count, students sql.NullInt64
	var avg sql.NullFloat64
	if err := e.db.QueryRowContext(ctx, q, date).Scan(&count, &students, &avg); err != nil {
		return DateSummary{}, fmt.Errorf("summarizing %s: %w", date, err)
	}

	s := DateSummary{Date: date, Sessions: int(count.Int64), UniqueStudents: int(students.Int64)}
	if avg.Valid {
		s.AvgDurationMinutes = math.Round(avg.Float64*10) / 10
	}
	return s, nil
}

// BusiestDates returns the n dates with the most sessions.
func (e *Engine) BusiestDates(ctx context.Context, n int) ([]DateCount, error) {
	return e.rankedDates(ctx, n, false)
}

// SlowestDates returns the n dates with the fewest sessions.
func (e *Engine) SlowestDates(ctx context.Context, n int) ([]DateCount, error) {
	return e.rankedDates(ctx, n, true)
}

func (e *Engine) rankedDates(ctx context.Context, n int, ascending bool) ([]DateCount, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", n)
	}
	direction := "DESC"
	if ascending {
		direction = "ASC"
	}
	q := "SELECT " + quoteIdent(colDate) + ", COUNT(*) AS n FROM sessions" +
		" WHERE " + quoteIdent(colDate) + " IS NOT NULL" +
		" GROUP BY " + quoteIdent(colDate) +
		" ORDER BY n " + direction + ", " + quoteIdent(colDate) + " ASC LIMIT ?"

	rows, err := e.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("ranking dates: %w", err)
	}
	defer rows.Close()

	var out []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Sessions); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// SessionsByWeekday tallies sessions for all seven weekdays in calendar
// order, including zero days.
func (e *Engine) SessionsByWeekday(ctx context.Context) ([]WeekdayCount, error) {
	q := "SELECT " + quoteIdent(colWeekday) + ", COUNT(*) FROM sessions" +
		" WHERE " + quoteIdent(colWeekday) + " IS NOT NULL" +
		" GROUP BY " + quoteIdent(colWeekday)

	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("grouping by weekday: %w", err)
	}
	defer rows.Close()

	tally := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		tally[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]WeekdayCount, 0, len(weekdayOrder))
	for _, day := range weekdayOrder {
		out = append(out, WeekdayCount{Weekday: day, Sessions: tally[day]})
	}
	return out, nil
}

// SessionsByHour tallies sessions per hour of day, ascending, hours with
// no sessions omitted.
func (e *Engine) SessionsByHour(ctx context.Context) ([]HourCount, error) {
	q := "SELECT " + quoteIdent(colHour) + ", COUNT(*) FROM sessions" +
		" WHERE " + quoteIdent(colHour) + " IS NOT NULL" +
		" GROUP BY " + quoteIdent(colHour) +
		" ORDER BY " + quoteIdent(colHour) + " ASC"

	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("grouping by hour: %w", err)
	}
	defer rows.Close()

	var out []HourCount
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Sessions); err != nil {
			return nil, err
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}

// AverageMetric averages a numeric column over rows matching the
// filters. The count of contributing rows rides along so callers can
// distinguish "average of nothing" from a real zero.
func (e *Engine) AverageMetric(ctx context.Context, column string, filters ...Filter) (float64, int, error) {
	if err := e.checkColumn(column); err != nil {
		return 0, 0, err
	}
	if !numericColumns[column] {
		return 0, 0, fmt.Errorf("column %q is not numeric", column)
	}
	where, args, err := e.whereClause(filters)
	if err != nil {
		return 0, 0, err
	}

	col := quoteIdent(column)
	q := "SELECT AVG(" + col + "), COUNT(" + col + ") FROM sessions" + where

	var avg sql.NullFloat64
	var n int
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&avg, &n); err != nil {
		return 0, 0, fmt.Errorf("averaging %s: %w", column, err)
	}
	return avg.Float64, n, nil
}

// TopValues returns the n most frequent non-null values of a column,
// ties broken by value so results are stable.
func (e *Engine) TopValues(ctx context.Context, column string, n int) ([]ValueCount, error) {
	if err := e.checkColumn(column); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", n)
	}

	col := quoteIdent(column)
	q := "SELECT " + col + ", COUNT(*) AS n FROM sessions" +
		" WHERE " + col + " IS NOT NULL AND " + col + " != ''" +
		" GROUP BY " + col +
		" ORDER BY n DESC, " + col + " ASC LIMIT ?"

	rows, err := e.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("ranking %s values: %w", column, err)
	}
	defer rows.Close()

	var out []ValueCount
	for rows.Next() {
		var vc ValueCount
		var raw any
		if err := rows.Scan(&raw, &vc.Sessions); err != nil {
			return nil, err
		}
		vc.Value = stringifyValue(raw)
		out = append(out, vc)
	}
	return out, rows.Err()
}

// Columns lists the loaded frame columns in sorted order.
func (e *Engine) Columns() []string {
	out := make([]string, 0, len(e.columns))
	for col := range e.columns {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
