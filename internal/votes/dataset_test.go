package votes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetFixture = "\ufeff" + `anr;datum;titel_kurz_d;titel_kurz_f;titel_kurz_e;titel_off_d;stichwort;rechtsform;br-pos;volkja;volkja-proz;kt-ja;kt-nein;p-fdp;p-sps;p-svp;p-mitte;p-gps;p-glp;p-evp;d1e1;d1e2;d1e3
677.00;13.06.2021;CO2-Gesetz;Loi sur le CO2;CO2 Act;Bundesgesetz über die Verminderung von Treibhausgasemissionen;Klima, Umwelt;2;1;2;48.4;3.5;16.5;1;1;2;1;1;1;1;Umwelt;;
682.00;09.02.2025;Umweltverantwortungsinitiative;Initiative pour la responsabilité environnementale;Environmental Responsibility Initiative;Volksinitiative für eine Wirtschaft in den planetaren Grenzen;Umwelt;3.0;2;;30.0;;;2;1;2;2;1;2;2;Umwelt;Wirtschaft;
683.00;18.05.2025;Zukunftsinitiative;Initiative pour l'avenir;Future Initiative;Volksinitiative für eine soziale Klimapolitik;Steuern;3;2;;;;;;;;;;;;Finanzen;;
;;leer;;;;;;;;;;;;;;;;;;;;
`

func fixtureDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := ParseDataset([]byte(datasetFixture))
	require.NoError(t, err)
	ds.now = func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }
	return ds
}

func TestParseDataset(t *testing.T) {
	ds := fixtureDataset(t)
	require.Len(t, ds.Votes, 3)

	past := ds.Votes[0]
	assert.Equal(t, "677", past.ID)
	assert.Equal(t, "677.00", past.ANR)
	assert.Equal(t, "CO2-Gesetz", past.TitleDE)
	assert.Equal(t, "Fakultatives Referendum", past.LegalForm)
	assert.Equal(t, "Empfehlung: Ja", past.FederalCouncil)
	assert.False(t, past.Upcoming)
	require.NotNil(t, past.YesPercent)
	assert.InDelta(t, 48.4, *past.YesPercent, 1e-9)
	require.NotNil(t, past.Accepted)
	assert.False(t, *past.Accepted)
	require.NotNil(t, past.CantonsYes)
	assert.Equal(t, 3, *past.CantonsYes)
	assert.Equal(t, time.Date(2021, 6, 13, 0, 0, 0, 0, time.UTC), past.Date)
	assert.Equal(t, "https://swissvotes.ch/vote/677.00", past.DetailsURL)
	assert.Equal(t, []string{"Umwelt"}, past.PolicyAreas)
}

func TestParseDataset_PartyParoles(t *testing.T) {
	ds := fixtureDataset(t)

	paroles := ds.Votes[0].PartyParoles
	require.NotEmpty(t, paroles)
	assert.Equal(t, "FDP: Ja", paroles[0])
	assert.Contains(t, paroles, "SVP: Nein")
	assert.Len(t, paroles, 7)
}

func TestParseDataset_UpcomingVote(t *testing.T) {
	ds := fixtureDataset(t)

	up := ds.Votes[1]
	assert.True(t, up.Upcoming)
	assert.Nil(t, up.YesPercent)
	assert.Nil(t, up.Accepted)
	require.NotNil(t, up.PollPrediction)
	assert.InDelta(t, 30.0, *up.PollPrediction, 1e-9)
	// "3.0" parses as code 3.
	assert.Equal(t, "Volksinitiative", up.LegalForm)
	assert.Equal(t, []string{"Umwelt", "Wirtschaft"}, up.PolicyAreas)
}

func TestParseDataset_MissingANRColumn(t *testing.T) {
	_, err := ParseDataset([]byte("a;b;c\n1;2;3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anr")
}

func TestUpcoming_SortedByDate(t *testing.T) {
	ds := fixtureDataset(t)

	up := ds.Upcoming()
	require.Len(t, up, 2)
	assert.Equal(t, "682", up[0].ID)
	assert.Equal(t, "683", up[1].ID)
}

func TestByID(t *testing.T) {
	ds := fixtureDataset(t)

	v, ok := ds.ByID("677")
	require.True(t, ok)
	assert.Equal(t, "677.00", v.ANR)

	v, ok = ds.ByID("677.00")
	require.True(t, ok)
	assert.Equal(t, "677", v.ID)

	_, ok = ds.ByID("999")
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	ds := fixtureDataset(t)

	hits := ds.Search("umwelt", true)
	require.Len(t, hits, 2)
	// Upcoming first.
	assert.Equal(t, "682", hits[0].ID)
	assert.Equal(t, "677", hits[1].ID)

	onlyUpcoming := ds.Search("umwelt", false)
	require.Len(t, onlyUpcoming, 1)
	assert.Equal(t, "682", onlyUpcoming[0].ID)

	assert.Empty(t, ds.Search("does-not-exist", true))
}

func TestVoteTitle_LanguageFallback(t *testing.T) {
	v := Vote{TitleDE: "de", TitleFR: "fr"}
	assert.Equal(t, "fr", v.Title("fr"))
	assert.Equal(t, "de", v.Title("en"))
	assert.Equal(t, "de", v.Title("de"))
}
