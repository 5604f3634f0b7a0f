package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"MACrossover/internal/model"
)

// CSVHeader is the column layout written by the exporter.
var CSVHeader = []string{"datetime", "open", "high", "low", "close", "volume", "instrument"}

// CSVSource reads observations from a CSV file with a header row.
type CSVSource struct {
	Path string
	// DefaultInstrument is used when the file has no instrument column.
	DefaultInstrument string
}

func NewCSVSource(path, defaultInstrument string) *CSVSource {
	return &CSVSource{Path: path, DefaultInstrument: defaultInstrument}
}

func (s *CSVSource) Name() string { return "csv:" + s.Path }

func (s *CSVSource) Fetch(_ context.Context) ([]Row, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadCSV(f, s.DefaultInstrument)
}

// ReadCSV parses CSV rows. Columns are matched by header name, case-insensitively;
// "date" is accepted in place of "datetime".
func ReadCSV(r io.Reader, defaultInstrument string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "date" {
			name = "datetime"
		}
		cols[name] = i
	}
	for _, required := range CSVHeader[:6] {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV missing column %q", required)
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			rows = append(rows, Row{Line: line, Err: err})
			continue
		}
		line, _ := cr.FieldPos(0)
		obs, err := parseRecord(rec, cols, defaultInstrument)
		rows = append(rows, Row{Line: line, Observation: obs, Err: err})
	}
	return rows, nil
}

func parseRecord(rec []string, cols map[string]int, defaultInstrument string) (model.Observation, error) {
	field := func(name string) (string, error) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(rec[i]), nil
	}
	price := func(name string) (float64, error) {
		v, err := field(name)
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", name, err)
		}
		return f, nil
	}

	var obs model.Observation
	ts, err := field("datetime")
	if err != nil {
		return obs, err
	}
	if obs.Time, err = model.ParseTimestamp(ts); err != nil {
		return obs, err
	}
	if obs.Open, err = price("open"); err != nil {
		return obs, err
	}
	if obs.High, err = price("high"); err != nil {
		return obs, err
	}
	if obs.Low, err = price("low"); err != nil {
		return obs, err
	}
	if obs.Close, err = price("close"); err != nil {
		return obs, err
	}
	vol, err := price("volume")
	if err != nil {
		return obs, err
	}
	obs.Volume = int64(vol)

	obs.Instrument = defaultInstrument
	if v, err := field("instrument"); err == nil && v != "" {
		obs.Instrument = v
	}
	return obs, nil
}

// WriteCSV writes observations using CSVHeader.
func WriteCSV(w io.Writer, obs []model.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, o := range obs {
		if err := cw.Write([]string{
			o.Time.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(o.Open, 'f', -1, 64),
			strconv.FormatFloat(o.High, 'f', -1, 64),
			strconv.FormatFloat(o.Low, 'f', -1, 64),
			strconv.FormatFloat(o.Close, 'f', -1, 64),
			strconv.FormatInt(o.Volume, 10),
			o.Instrument,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
