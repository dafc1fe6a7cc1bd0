package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/pm25-stats/internal/domain"
	"gopkg.in/yaml.v3"
)

// City describes one source dataset: its CSV file, the domestic station
// columns, and the reference (US post) column.
type City struct {
	ID        string   `yaml:"id"`
	File      string   `yaml:"file"`
	Stations  []string `yaml:"stations"`
	Reference string   `yaml:"reference"`
}

// Columns returns the CSV columns to read: year, month, the stations, then the reference.
func (c City) Columns() []string {
	cols := make([]string, 0, len(c.Stations)+3)
	cols = append(cols, domain.ColumnYear, domain.ColumnMonth)
	cols = append(cols, c.Stations...)
	return append(cols, c.Reference)
}

// Path joins the city's file onto the dataset root.
func (c City) Path(root string) string {
	return filepath.Join(root, c.File)
}

const usPost = "PM_US Post"

// DefaultCities returns the five cities of the original dataset.
func DefaultCities() []City {
	return []City{
		{ID: "beijing", File: "BeijingPM20100101_20151231.csv", Stations: []string{"PM_Dongsi", "PM_Dongsihuan", "PM_Nongzhanguan"}, Reference: usPost},
		{ID: "chengdu", File: "ChengduPM20100101_20151231.csv", Stations: []string{"PM_Caotangsi", "PM_Shahepu"}, Reference: usPost},
		{ID: "guangzhou", File: "GuangzhouPM20100101_20151231.csv", Stations: []string{"PM_City Station", "PM_5th Middle School"}, Reference: usPost},
		{ID: "shanghai", File: "ShanghaiPM20100101_20151231.csv", Stations: []string{"PM_Jingan", "PM_Xuhui"}, Reference: usPost},
		{ID: "shenyang", File: "ShenyangPM20100101_20151231.csv", Stations: []string{"PM_Taiyuanjie", "PM_Xiaoheyan"}, Reference: usPost},
	}
}

type citiesFile struct {
	Cities []City `yaml:"cities"`
}

// LoadCities reads a YAML city list from path and validates it.
func LoadCities(path string) ([]City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CITIES_FILE: %w", err)
	}
	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse CITIES_FILE %s: %w", path, err)
	}
	if err := ValidateCities(f.Cities); err != nil {
		return nil, fmt.Errorf("CITIES_FILE %s: %w", path, err)
	}
	return f.Cities, nil
}

// ValidateCities checks that the list is non-empty, ids are unique, and every
// city names a file, at least one station, and a reference column distinct
// from its stations.
func ValidateCities(cities []City) error {
	if len(cities) == 0 {
		return errors.New("no cities configured")
	}
	seen := make(map[string]bool, len(cities))
	for i, c := range cities {
		switch {
		case c.ID == "":
			return fmt.Errorf("city %d: id is required", i)
		case seen[c.ID]:
			return fmt.Errorf("city %s: duplicate id", c.ID)
		case c.File == "":
			return fmt.Errorf("city %s: file is required", c.ID)
		case len(c.Stations) == 0:
			return fmt.Errorf("city %s: at least one station is required", c.ID)
		case c.Reference == "":
			return fmt.Errorf("city %s: reference column is required", c.ID)
		}
		for _, s := range c.Stations {
			if s == c.Reference {
				return fmt.Errorf("city %s: reference column %q is also listed as a station", c.ID, s)
			}
		}
		seen[c.ID] = true
	}
	return nil
}
