// Package country holds the per-country rules of the application form:
// region lists, national ID and phone formats, and currency.
package country

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var defaultTable []byte

var ErrUnknownCountry = errors.New("UNKNOWN_COUNTRY")

// Region is one selectable region of a country.
type Region struct {
	Code   string `yaml:"code" json:"code"`
	NameEn string `yaml:"name_en" json:"nameEn"`
	NameAr string `yaml:"name_ar" json:"nameAr"`
}

// Name returns the region label for lang.
func (r Region) Name(lang string) string {
	if lang == "ar" && r.NameAr != "" {
		return r.NameAr
	}
	return r.NameEn
}

// Format describes a masked numeric value such as a national ID or phone.
type Format struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	Mask     string `yaml:"mask" json:"mask"`
	DialCode string `yaml:"dial_code,omitempty" json:"dialCode,omitempty"`

	re *regexp.Regexp
}

// Match reports whether value matches the pattern exactly.
func (f Format) Match(value string) bool {
	return f.re != nil && f.re.MatchString(value)
}

// MaxLength is the length of a fully masked value.
func (f Format) MaxLength() int {
	return len(f.Mask)
}

// MaxDigits is the number of digit slots in the mask.
func (f Format) MaxDigits() int {
	return strings.Count(f.Mask, "#")
}

type Currency struct {
	Code     string `yaml:"code" json:"code"`
	SymbolAr string `yaml:"symbol_ar" json:"symbolAr"`
}

// Symbol returns the currency suffix used for lang.
func (c Currency) Symbol(lang string) string {
	if lang == "ar" && c.SymbolAr != "" {
		return c.SymbolAr
	}
	return c.Code
}

// Country is one row of the table.
type Country struct {
	Code       string   `yaml:"code" json:"code"`
	NameEn     string   `yaml:"name_en" json:"nameEn"`
	NameAr     string   `yaml:"name_ar" json:"nameAr"`
	NationalID Format   `yaml:"national_id" json:"nationalId"`
	Phone      Format   `yaml:"phone" json:"phone"`
	Currency   Currency `yaml:"currency" json:"currency"`
	Regions    []Region `yaml:"regions" json:"regions"`
}

// Name returns the country label for lang.
func (c *Country) Name(lang string) string {
	if lang == "ar" && c.NameAr != "" {
		return c.NameAr
	}
	return c.NameEn
}

// HasRegion reports whether code is one of the country's regions.
func (c *Country) HasRegion(code string) bool {
	_, ok := c.Region(code)
	return ok
}

// Region looks up a region by code.
func (c *Country) Region(code string) (Region, bool) {
	for _, r := range c.Regions {
		if r.Code == code {
			return r, true
		}
	}
	return Region{}, false
}

// Table is an immutable lookup of countries by code.
type Table struct {
	byCode map[string]*Country
}

type tableFile struct {
	Countries []*Country `yaml:"countries"`
}

// Parse builds a table from YAML and compiles every pattern anchored.
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse country table: %w", err)
	}
	if len(file.Countries) == 0 {
		return nil, fmt.Errorf("country table is empty")
	}

	t := &Table{byCode: make(map[string]*Country, len(file.Countries))}
	for _, c := range file.Countries {
		if c.Code == "" {
			return nil, fmt.Errorf("country without code")
		}
		if _, dup := t.byCode[c.Code]; dup {
			return nil, fmt.Errorf("duplicate country %s", c.Code)
		}
		if err := compile(&c.NationalID); err != nil {
			return nil, fmt.Errorf("%s national_id: %w", c.Code, err)
		}
		if err := compile(&c.Phone); err != nil {
			return nil, fmt.Errorf("%s phone: %w", c.Code, err)
		}
		t.byCode[c.Code] = c
	}
	return t, nil
}

func compile(f *Format) error {
	if f.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if !strings.Contains(f.Mask, "#") {
		return fmt.Errorf("mask %q has no digit slots", f.Mask)
	}
	re, err := regexp.Compile(`^(?:` + f.Pattern + `)$`)
	if err != nil {
		return err
	}
	f.re = re
	return nil
}

// LoadFile reads a table from disk, replacing the embedded default.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

var (
	defaultOnce sync.Once
	defaultTbl  *Table
)

// Default returns the embedded table. It panics if the embedded YAML is invalid.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultTable)
		if err != nil {
			panic(err)
		}
		defaultTbl = t
	})
	return defaultTbl
}

// Lookup returns the country for code.
func (t *Table) Lookup(code string) (*Country, error) {
	c, ok := t.byCode[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}
	return c, nil
}

// Get returns the country for code, or nil.
func (t *Table) Get(code string) *Country {
	return t.byCode[code]
}

// Codes returns the country codes in sorted order.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.byCode))
	for code := range t.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
