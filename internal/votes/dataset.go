// Package votes serves Swiss federal vote metadata from the swissvotes.ch
// dataset: a cached CSV fetcher, typed vote records with codebook mappings,
// query helpers, and an HTTP API with a PDF document cache.
package votes

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// partyParoleCodes maps codebook parole codes to labels.
var partyParoleCodes = map[int]string{
	1:  "Ja",
	2:  "Nein",
	3:  "Keine Parole",
	4:  "Stimmfreigabe (Leer)",
	5:  "Stimmfreigabe",
	66: "Vorlage 1 (Initiative)",
	67: "Vorlage 2 (Gegenentwurf)",
	8:  "Gegenentwurf",
	9:  "Keine Parole / Nein",
}

// legalFormCodes maps the rechtsform column.
var legalFormCodes = map[int]string{
	1: "Obligatorisches Referendum",
	2: "Fakultatives Referendum",
	3: "Volksinitiative",
	4: "Direkter Gegenentwurf",
	5: "Stichfrage",
}

// federalCouncilCodes maps the br-pos column.
var federalCouncilCodes = map[int]string{
	1: "Empfehlung: Ja",
	2: "Empfehlung: Nein",
	8: "Gegenentwurf",
	9: "Keine Empfehlung",
}

// mainParties lists the parole columns reported per vote, in report order.
var mainParties = []struct {
	Column string
	Name   string
}{
	{"p-fdp", "FDP"},
	{"p-sps", "SP"},
	{"p-svp", "SVP"},
	{"p-mitte", "Mitte"},
	{"p-gps", "Grüne"},
	{"p-glp", "GLP"},
	{"p-evp", "EVP"},
}

// Vote is one federal ballot proposal from the dataset.
type Vote struct {
	ID             string   `json:"vote_id"`
	ANR            string   `json:"anr"`
	DateLabel      string   `json:"abstimmungsdatum"`
	TitleDE        string   `json:"title_de"`
	TitleFR        string   `json:"title_fr"`
	TitleEN        string   `json:"title_en"`
	OfficialTitle  string   `json:"offizieller_titel"`
	Keyword        string   `json:"schlagwort"`
	LegalForm      string   `json:"rechtsform"`
	LegalFormCode  int      `json:"rechtsform_code,omitempty"`
	FederalCouncil string   `json:"position_bundesrat,omitempty"`
	PartyParoles   []string `json:"parteiparolen,omitempty"`
	Upcoming       bool     `json:"is_upcoming"`
	YesPercent     *float64 `json:"volkja_proz,omitempty"`
	Accepted       *bool    `json:"accepted,omitempty"`
	CantonsYes     *int     `json:"kt_ja,omitempty"`
	CantonsNo      *int     `json:"kt_nein,omitempty"`
	PollPrediction *float64 `json:"poll_prediction_proz,omitempty"`
	PolicyAreas    []string `json:"policy_areas,omitempty"`
	DetailsURL     string   `json:"details_url"`

	Date time.Time `json:"-"`
}

// Title returns the short title in the requested language, falling back to
// German.
func (v Vote) Title(lang string) string {
	switch lang {
	case "fr":
		if v.TitleFR != "" {
			return v.TitleFR
		}
	case "en":
		if v.TitleEN != "" {
			return v.TitleEN
		}
	}
	return v.TitleDE
}

// Dataset is the parsed swissvotes corpus.
type Dataset struct {
	Votes []Vote
	now   func() time.Time
}

// ParseDataset decodes the semicolon-separated swissvotes CSV. A UTF-8 BOM
// is stripped before parsing. Rows without a vote number are skipped.
func ParseDataset(raw []byte) (*Dataset, error) {
	bom := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := csv.NewReader(transform.NewReader(bytes.NewReader(raw), bom))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "votes: read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["anr"]; !ok {
		return nil, eris.New("votes: csv misses anr column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ds := &Dataset{now: time.Now}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "votes: read csv record")
		}

		anr := field(record, "anr")
		if anr == "" {
			continue
		}
		v := Vote{
			ID:            strings.SplitN(anr, ".", 2)[0],
			ANR:           anr,
			DateLabel:     field(record, "datum"),
			TitleDE:       field(record, "titel_kurz_d"),
			TitleFR:       field(record, "titel_kurz_f"),
			TitleEN:       field(record, "titel_kurz_e"),
			OfficialTitle: field(record, "titel_off_d"),
			Keyword:       field(record, "stichwort"),
			DetailsURL:    fmt.Sprintf("https://swissvotes.ch/vote/%s", anr),
		}
		v.Date, _ = parseVoteDate(v.DateLabel)

		if code, ok := codebookInt(field(record, "rechtsform")); ok {
			v.LegalFormCode = code
			v.LegalForm = legalFormCodes[code]
			if v.LegalForm == "" {
				v.LegalForm = strconv.Itoa(code)
			}
		}
		if code, ok := codebookInt(field(record, "br-pos")); ok {
			v.FederalCouncil = federalCouncilCodes[code]
		}
		for _, party := range mainParties {
			if code, ok := codebookInt(field(record, party.Column)); ok {
				if label := partyParoleCodes[code]; label != "" {
					v.PartyParoles = append(v.PartyParoles, party.Name+": "+label)
				}
			}
		}

		// A vote without a recorded popular result has not happened yet.
		v.Upcoming = field(record, "volkja") == ""
		yesPct := field(record, "volkja-proz")
		if v.Upcoming {
			if pct, err := strconv.ParseFloat(yesPct, 64); err == nil {
				v.PollPrediction = &pct
			}
		} else {
			if pct, err := strconv.ParseFloat(yesPct, 64); err == nil {
				v.YesPercent = &pct
				accepted := pct > 50
				v.Accepted = &accepted
			}
			if n, ok := codebookInt(field(record, "kt-ja")); ok {
				v.CantonsYes = &n
			}
			if n, ok := codebookInt(field(record, "kt-nein")); ok {
				v.CantonsNo = &n
			}
		}

		for _, area := range []string{"d1e1", "d1e2", "d1e3"} {
			if a := field(record, area); a != "" && a != "." {
				v.PolicyAreas = append(v.PolicyAreas, a)
			}
		}

		ds.Votes = append(ds.Votes, v)
	}
	return ds, nil
}

// parseVoteDate parses the dataset's DD.MM.YYYY format.
func parseVoteDate(s string) (time.Time, error) {
	return time.Parse("02.01.2006", s)
}

// codebookInt parses a numeric codebook cell, tolerating float renderings
// like "3.0".
func codebookInt(s string) (int, bool) {
	if s == "" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// Upcoming returns votes scheduled after today, soonest first.
func (d *Dataset) Upcoming() []Vote {
	today := d.now()
	var out []Vote
	for _, v := range d.Votes {
		if !v.Date.IsZero() && v.Date.After(today) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ByID finds a vote by its number. Both "677" and "677.00" resolve to the
// same proposal.
func (d *Dataset) ByID(id string) (Vote, bool) {
	want := strings.SplitN(id, ".", 2)[0]
	for _, v := range d.Votes {
		if v.ID == want {
			return v, true
		}
	}
	return Vote{}, false
}

// Search matches the keyword case-insensitively against the short titles,
// the official title, and the keyword column. Upcoming votes sort first,
// then by date descending. With includeHistorical false only upcoming votes
// are returned.
func (d *Dataset) Search(keyword string, includeHistorical bool) []Vote {
	needle := strings.ToLower(keyword)
	today := d.now()

	var out []Vote
	for _, v := range d.Votes {
		searchable := strings.ToLower(strings.Join([]string{
			v.TitleDE, v.TitleFR, v.TitleEN, v.OfficialTitle, v.Keyword,
		}, " "))
		if !strings.Contains(searchable, needle) {
			continue
		}
		if !includeHistorical && !(!v.Date.IsZero() && v.Date.After(today)) {
			continue
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Upcoming != out[j].Upcoming {
			return out[i].Upcoming
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}
