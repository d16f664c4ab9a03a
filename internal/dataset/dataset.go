// Package dataset loads the nutrition/obesity CSV dataset into memory and
// holds the fixed question classification lists the compute package uses to
// decide sort direction for best/worst rankings.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Entry is one row of the source CSV, trimmed to the columns the
// computations actually use.
type Entry struct {
	Index                    int
	YearStart                int
	YearEnd                  int
	LocationAbbr             string
	LocationDesc             string
	DataSource               string
	Classification           string
	Topic                    string
	Question                 string
	DataValue                float64
	HasDataValue             bool
	StratificationCategory1  string
	Stratification1          string
}

// Table is the in-memory dataset plus the static question lists used to
// classify whether a lower or higher value is the "best" outcome for a
// given question.
type Table struct {
	Entries []Entry

	// QuestionsBestIsMin lists questions where the smallest state mean is
	// the best outcome (e.g. obesity rate).
	QuestionsBestIsMin []string

	// QuestionsBestIsMax lists questions where the largest state mean is
	// the best outcome (e.g. physical activity rate).
	QuestionsBestIsMax []string
}

// questionsBestIsMin and questionsBestIsMax are copied verbatim from the
// reference ingestor; they are the only way best5/worst5 know which
// direction "best" points for a given question.
var questionsBestIsMin = []string{
	"Percent of adults aged 18 years and older who have an overweight classification",
	"Percent of adults aged 18 years and older who have obesity",
	"Percent of adults who engage in no leisure-time physical activity",
	"Percent of adults who report consuming fruit less than one time daily",
	"Percent of adults who report consuming vegetables less than one time daily",
}

var questionsBestIsMax = []string{
	"Percent of adults who achieve at least 150 minutes a week of moderate-intensity aerobic physical activity or 75 minutes a week of vigorous-intensity aerobic activity (or an equivalent combination)",
	"Percent of adults who achieve at least 150 minutes a week of moderate-intensity aerobic physical activity or 75 minutes a week of vigorous-intensity aerobic physical activity and engage in muscle-strengthening activities on 2 or more days a week",
	"Percent of adults who achieve at least 300 minutes a week of moderate-intensity aerobic physical activity or 150 minutes a week of vigorous-intensity aerobic activity (or an equivalent combination)",
	"Percent of adults who engage in muscle-strengthening activities on 2 or more days a week",
}

// BestIsMin reports whether the lowest state mean is the best outcome for
// question.
func (t *Table) BestIsMin(question string) bool {
	return contains(t.QuestionsBestIsMin, question)
}

// BestIsMax reports whether the highest state mean is the best outcome for
// question.
func (t *Table) BestIsMax(question string) bool {
	return contains(t.QuestionsBestIsMax, question)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// column indices into the source CSV, 0-based, matching the reference
// ingestor's row[1]..row[31] layout.
const (
	colYearStart               = 1
	colYearEnd                 = 2
	colLocationAbbr            = 3
	colLocationDesc            = 4
	colDataSource              = 5
	colClassification          = 6
	colTopic                   = 7
	colQuestion                = 8
	colDataValue               = 11
	colStratificationCategory1 = 30
	colStratification1         = 31
	minColumns                 = 32
)

// LoadCSV reads the dataset CSV at path, skipping the header row. Rows with
// too few columns, or whose year or data-value fields fail to parse, are
// skipped rather than aborting the load, matching the reference ingestor's
// tolerance for malformed rows in a large public dataset. A CSV syntax
// error in any row aborts the load with an error.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	t := &Table{
		QuestionsBestIsMin: questionsBestIsMin,
		QuestionsBestIsMax: questionsBestIsMax,
	}

	for i := 0; ; i++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row %d: %w", i, err)
		}
		if len(row) < minColumns {
			continue
		}

		entry, ok := parseRow(i, row)
		if !ok {
			continue
		}
		t.Entries = append(t.Entries, entry)
	}

	return t, nil
}

func parseRow(index int, row []string) (Entry, bool) {
	yearStart, err := strconv.Atoi(row[colYearStart])
	if err != nil {
		return Entry{}, false
	}
	yearEnd, err := strconv.Atoi(row[colYearEnd])
	if err != nil {
		return Entry{}, false
	}

	entry := Entry{
		Index:                   index,
		YearStart:               yearStart,
		YearEnd:                 yearEnd,
		LocationAbbr:            row[colLocationAbbr],
		LocationDesc:            row[colLocationDesc],
		DataSource:              row[colDataSource],
		Classification:          row[colClassification],
		Topic:                   row[colTopic],
		Question:                row[colQuestion],
		StratificationCategory1: row[colStratificationCategory1],
		Stratification1:         row[colStratification1],
	}

	if row[colDataValue] != "" {
		v, err := strconv.ParseFloat(row[colDataValue], 64)
		if err != nil {
			return Entry{}, false
		}
		entry.DataValue = v
		entry.HasDataValue = true
	}

	return entry, true
}
