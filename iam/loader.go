package iam

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

var headerColumns = []string{"model", "scenario", "region", "variable", "unit"}

// Load reads a scenario file into a cube. The file has a header
// "Model,Scenario,Region,Variable,Unit" followed by one column per year, and
// a row per (region, variable). Semicolon separated files are accepted too.
// Only the rows of variables listed in variables are kept, stored under
// their premise name.
func Load(r io.Reader, variables VariableMap, opts ...CubeOption) (*Cube, error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read scenario header: %w", err)
	}

	reader := csv.NewReader(buffered)
	reader.Comma = detectDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario header: %w", err)
	}
	years, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var model, pathway string
	var names map[string][]string
	rows := make([]Row, 0)
	dropped := 0

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < len(headerColumns) {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, len(headerColumns), len(record))
		}

		if model == "" {
			model, err = NormalizeModel(record[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			pathway = record[1]
			names = variables.reverse(model)
		}
		if rowModel, _ := NormalizeModel(record[0]); rowModel != model || record[1] != pathway {
			return nil, fmt.Errorf("line %d: scenario %s/%s in a file of %s/%s", line, record[0], record[1], model, pathway)
		}

		premiseNames, keep := names[record[3]]
		if !keep {
			dropped++
			continue
		}

		values := make(map[int]float64, len(years))
		for i, year := range years {
			column := len(headerColumns) + i
			if column >= len(record) {
				break
			}
			cell := strings.TrimSpace(record[column])
			if cell == "" || strings.EqualFold(cell, "N/A") || strings.EqualFold(cell, "NA") {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: year %d: %w", line, year, err)
			}
			values[year] = value
		}

		for _, name := range premiseNames {
			rows = append(rows, Row{
				Region:   record[2],
				Variable: name,
				Unit:     record[4],
				Values:   values,
			})
		}
	}

	if model == "" {
		return nil, errors.New("scenario file has no rows")
	}

	slog.Info("iam scenario loaded", "model", model, "pathway", pathway, "rows", len(rows), "dropped", dropped)

	return NewCube(model, pathway, rows, opts...)
}

func detectDelimiter(head []byte) rune {
	line, _, _ := bytes.Cut(head, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func parseHeader(header []string) ([]int, error) {
	if len(header) <= len(headerColumns) {
		return nil, fmt.Errorf("scenario header has no year column: %v", header)
	}
	for i, column := range headerColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), column) {
			return nil, fmt.Errorf("scenario header column %d is %q, expected %q", i+1, header[i], column)
		}
	}

	years := make([]int, 0, len(header)-len(headerColumns))
	for _, column := range header[len(headerColumns):] {
		column = strings.TrimSpace(column)
		if column == "" {
			// trailing separator
			continue
		}
		year, err := strconv.Atoi(column)
		if err != nil {
			return nil, fmt.Errorf("scenario header has a non year column %q", column)
		}
		years = append(years, year)
	}
	return years, nil
}
