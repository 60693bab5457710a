package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/epidata/countystats/internal/model"
)

// outputColumns is the output CSV header, in published column order.
var outputColumns = []string{
	"fips", "date", "population", "daily_cases", "daily_deaths",
	"cumulative_cases_to_date", "cumulative_deaths_to_date",
}

// WriteStats writes stat records as CSV. A nil population is written as an
// empty field.
func WriteStats(w io.Writer, stats []model.CountyStatRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(outputColumns); err != nil {
		return eris.Wrap(err, "output: write header")
	}

	for _, s := range stats {
		population := ""
		if s.Population != nil {
			population = strconv.FormatInt(*s.Population, 10)
		}
		row := []string{
			s.FIPS,
			s.Date.Format(dateLayout),
			population,
			strconv.FormatInt(s.DailyCases, 10),
			strconv.FormatInt(s.DailyDeaths, 10),
			strconv.FormatInt(s.CumulativeCases, 10),
			strconv.FormatInt(s.CumulativeDeaths, 10),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "output: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush")
}

// WriteStatsFile writes stats to a temp file in the destination directory
// and renames it into place, so a failed run leaves no partial output.
func WriteStatsFile(path string, stats []model.CountyStatRecord) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrapf(err, "output: create temp file in %s", dir)
	}

	if err := WriteStats(tmp, stats); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "output: close temp file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrapf(err, "output: rename to %s", path)
	}

	return nil
}
