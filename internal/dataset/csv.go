// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV loads a frame from CSV. The first record is the header. A UTF-8
// BOM is tolerated and ragged rows are padded with nulls, both of which the
// scheduling platform's exports are known to produce.
func ReadCSV(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)

	// Strip UTF-8 BOM if present
	if peek, err := br.Peek(3); err == nil && peek[0] == 0xEF && peek[1] == 0xBB && peek[2] == 0xBF {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	frame, err := NewFrame(header)
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) > len(header) {
			record = record[:len(header)]
		}
		if err := frame.AppendRow(record); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// LoadCSV reads a frame from a file path.
func LoadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	frame, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return frame, nil
}

// WriteCSV writes the frame as CSV with a header record.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.cols); err != nil {
		return err
	}
	for _, row := range f.rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the frame to a file path.
func (f *Frame) SaveCSV(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := f.WriteCSV(out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
