package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of the DAY column of weather CSV files
const DateLayout = "2006-01-02"

// header is the expected CSV header
var header = []string{"DAY", "IRRAD", "TMIN", "TMAX", "RAIN"}

// ReadCSV reads a weather series for the season harvested in year. The
// CSV must have the header DAY,IRRAD,TMIN,TMAX,RAIN with dates formatted
// as YYYY-MM-DD.
func ReadCSV(r io.Reader, year int) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("readCSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("readCSV: missing header")
	}

	index := make(map[string]int, len(header))
	for i, name := range records[0] {
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, name := range header {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("readCSV: missing column %v", name)
		}
	}

	series := &Series{Year: year, Days: make([]Day, 0, len(records)-1)}
	for line, record := range records[1:] {
		date, err := time.Parse(DateLayout, record[index["DAY"]])
		if err != nil {
			return nil, fmt.Errorf("readCSV: line %v: %w", line+2, err)
		}

		var values [4]float64
		for i, name := range header[1:] {
			values[i], err = strconv.ParseFloat(record[index[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("readCSV: line %v: column %v: %w",
					line+2, name, err)
			}
		}

		series.Days = append(series.Days, Day{
			Date:  date,
			IRRAD: values[0],
			TMIN:  values[1],
			TMAX:  values[2],
			RAIN:  values[3],
		})
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("readCSV: %w", err)
	}
	return series, nil
}

// LoadCSV reads the weather series stored at path
func LoadCSV(path string, year int) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadCSV: %w", err)
	}
	defer file.Close()

	return ReadCSV(file, year)
}

// WriteCSV writes a weather series in the format read by ReadCSV
func WriteCSV(w io.Writer, s *Series) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writeCSV: %w", err)
	}

	for _, d := range s.Days {
		record := []string{
			d.Date.Format(DateLayout),
			strconv.FormatFloat(d.IRRAD, 'f', -1, 64),
			strconv.FormatFloat(d.TMIN, 'f', -1, 64),
			strconv.FormatFloat(d.TMAX, 'f', -1, 64),
			strconv.FormatFloat(d.RAIN, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writeCSV: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
