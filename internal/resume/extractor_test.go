package resume

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/dates"
)

const sampleResume = `
Jane Doe
https://www.linkedin.com/in/jane-doe
https://www.linkedin.com/in/someone-else

Acme Corp Software Engineer Jan 2020 - Present Austin, TX
Globex Senior Developer 2018-03 - 2019-12-31 Denver, CO
Initech | QA Intern 2017 - 2017 part-time
Hobbies: hiking, chess

Projects: https://github.com/jane/tool and https://github.com/jane/tool.
Also https://github.com/jane/other.git
`

func newTestExtractor(t *testing.T, cfg ExtractorConfig) *Extractor {
	t.Helper()
	e, err := NewExtractor(cfg, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestExtract(t *testing.T) {
	e := newTestExtractor(t, ExtractorConfig{
		Profiles: map[string]string{"acme corp": "logistics, software"},
	})

	doc := e.Extract(sampleResume)
	require.Len(t, doc.Roles, 3)

	acme := doc.Roles[0]
	assert.Equal(t, "Engineer", acme.Title)
	assert.Equal(t, "Acme Corp Software", acme.Company)
	assert.Equal(t, dates.On(2020, time.January, 1), acme.Start)
	assert.Equal(t, dates.Ongoing, acme.End.Kind)
	assert.Equal(t, "Austin, TX", acme.Location)
	assert.True(t, acme.FullTime)
	assert.Equal(t, "Acme Corp Software Engineer Jan 2020 - Present Austin, TX", acme.Description)
	assert.Empty(t, acme.ExpectedKeywords, "profile lookup is by the extracted company text")

	globex := doc.Roles[1]
	assert.Equal(t, "Developer", globex.Title)
	assert.Equal(t, "Globex Senior", globex.Company)
	assert.Equal(t, dates.On(2018, time.March, 1), globex.Start)
	assert.Equal(t, dates.On(2019, time.December, 31), globex.End)
	assert.Equal(t, "Denver, CO", globex.Location)

	initech := doc.Roles[2]
	assert.Equal(t, "Intern", initech.Title)
	assert.Equal(t, "Initech | QA", initech.Company)
	assert.False(t, initech.FullTime)
	assert.Empty(t, initech.Location)

	assert.Equal(t, []string{"https://github.com/jane/tool", "https://github.com/jane/other.git"}, doc.RepositoryURLs)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", doc.ProfileURL)
}

func TestExtractLocation(t *testing.T) {
	e := newTestExtractor(t, ExtractorConfig{})

	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "multi-word city", line: "Acme Engineer 2020 - 2021 New York, NY", want: "New York, NY"},
		{name: "after ongoing literal", line: "Acme Engineer Jan 2020 - Present San Francisco, CA", want: "San Francisco, CA"},
		{name: "company is not swallowed", line: "Big Data Corp Engineer Salt Lake City,UT 2020", want: "Salt Lake City,UT"},
		{name: "before the title", line: "Austin, TX Acme Engineer 2020", want: "Austin, TX"},
		{name: "none", line: "Acme Engineer 2020 remote", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := e.Extract(tt.line)
			require.Len(t, doc.Roles, 1)
			assert.Equal(t, tt.want, doc.Roles[0].Location)
		})
	}
}

func TestExtractAssignsProfileKeywords(t *testing.T) {
	e := newTestExtractor(t, ExtractorConfig{
		Profiles: map[string]string{"  ACME  ": "logistics, software"},
	})

	doc := e.Extract("Acme - Platform Engineer 2020 - 2021")
	require.Len(t, doc.Roles, 1)
	assert.Equal(t, "Acme - Platform", doc.Roles[0].Company)

	doc = e.Extract("acme | Engineer 2020 - 2021")
	require.Len(t, doc.Roles, 1)
	assert.Equal(t, "acme", doc.Roles[0].Company)
	assert.Equal(t, "logistics, software", doc.Roles[0].ExpectedKeywords)
}

func TestExtractUnknownCompany(t *testing.T) {
	e := newTestExtractor(t, ExtractorConfig{})

	doc := e.Extract("engineer since 2019")
	require.Len(t, doc.Roles, 1)
	assert.Equal(t, "engineer", doc.Roles[0].Title)
	assert.Equal(t, UnknownCompany, doc.Roles[0].Company)
	assert.Equal(t, dates.On(2019, time.January, 1), doc.Roles[0].Start)
	assert.Equal(t, dates.Absent, doc.Roles[0].End.Kind)
}

func TestExtractCustomKeywords(t *testing.T) {
	e := newTestExtractor(t, ExtractorConfig{TitleKeywords: []string{"Architect", " "}})

	doc := e.Extract("Umbrella Solutions Architect 2015 - 2016\nAcme Engineer 2020")
	require.Len(t, doc.Roles, 1)
	assert.Equal(t, "Architect", doc.Roles[0].Title)
}

func TestNewExtractorRejectsBlankKeywords(t *testing.T) {
	_, err := NewExtractor(ExtractorConfig{TitleKeywords: []string{" ", ""}}, nil)
	require.Error(t, err)
}

func TestExtractEmpty(t *testing.T) {
	e := newTestExtractor(t, ExtractorConfig{})

	doc := e.Extract("   \n\n")
	assert.Empty(t, doc.Roles)
	assert.Empty(t, doc.RepositoryURLs)
	assert.Empty(t, doc.ProfileURL)
}

func TestParseDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		start dates.Date
		end   dates.Date
	}{
		{
			name:  "year range",
			line:  "Engineer 2019-2021",
			start: dates.On(2019, time.January, 1),
			end:   dates.On(2021, time.January, 1),
		},
		{
			name:  "month names",
			line:  "Engineer June 2019 to Sept 2020 and March 2021",
			start: dates.On(2019, time.June, 1),
			end:   dates.On(2020, time.September, 1),
		},
		{
			name:  "ongoing literal",
			line:  "Engineer 2019-05 - current",
			start: dates.On(2019, time.May, 1),
			end:   dates.Date{Kind: dates.Ongoing},
		},
		{
			name: "no dates in words",
			line: "Unknown Engineer knows nothing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end := parseDates(tt.line)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestRepositoryID(t *testing.T) {
	t.Parallel()

	id, ok := RepositoryID("https://github.com/jane/tool.git")
	assert.True(t, ok)
	assert.Equal(t, "jane/tool", id)

	id, ok = RepositoryID("https://github.com/jane/tool/tree/main")
	assert.True(t, ok)
	assert.Equal(t, "jane/tool", id)

	_, ok = RepositoryID("https://github.com/jane")
	assert.False(t, ok)
}

func TestFileTextReadsPlainFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("Acme Engineer 2020"), 0o600))

	src := NewFileText("", zap.NewNop())
	assert.Equal(t, "Acme Engineer 2020", src.Text(context.Background(), path))
}

func TestFileTextFailuresYieldEmptyText(t *testing.T) {
	src := NewFileText(filepath.Join(t.TempDir(), "missing-pdftotext"), zap.NewNop())

	assert.Empty(t, src.Text(context.Background(), ""))
	assert.Empty(t, src.Text(context.Background(), filepath.Join(t.TempDir(), "missing.txt")))
	assert.Empty(t, src.Text(context.Background(), filepath.Join(t.TempDir(), "cv.pdf")))
}
