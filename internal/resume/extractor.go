package resume

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/spigell/cv-verifier/internal/dates"
	"github.com/spigell/cv-verifier/internal/logger"
)

// DefaultTitleKeywords are the job-title tokens that mark a line as a role.
var DefaultTitleKeywords = []string{"Engineer", "Developer", "Intern", "Manager", "Director"}

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t|tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	dateTokenRe = regexp.MustCompile(`(?i)(\b\d{4}-\d{2}-\d{2}\b|\b\d{4}-\d{2}\b|\b(?:` + monthNames + `)\s\d{4}\b|\b\d{4}\b|\b(?:present|ongoing|current|now)\b)`)
	locationRe  = regexp.MustCompile(`\b(?:[A-Z][a-z]+ )*[A-Z][a-z]+,\s?[A-Z]{2}\b`)
	cityRe      = regexp.MustCompile(`\b[A-Z][a-z]+,\s?[A-Z]{2}\b`)
	dateWordRe  = regexp.MustCompile(`(?i)^(?:` + monthNames + `|present|ongoing|current|now)$`)
	repoURLRe   = regexp.MustCompile(`https?://github\.com/[\w\-./]+`)
	profileRe   = regexp.MustCompile(`https?://(?:www\.)?linkedin\.com/in/[\w\-]+`)
	partTimeRe  = regexp.MustCompile(`(?i)\bpart[\s-]time\b`)
)

const companyTrimSet = " \t-–—|,:@·•"

// ExtractorConfig tunes role recognition.
type ExtractorConfig struct {
	// TitleKeywords overrides DefaultTitleKeywords when non-empty.
	TitleKeywords []string
	// Profiles maps a company name to its expected purpose keywords.
	Profiles map[string]string
}

// Extractor builds a Document from plain résumé text. It is safe for
// concurrent use.
type Extractor struct {
	titleRe  *regexp.Regexp
	profiles map[string]string
	logger   *zap.Logger
}

// NewExtractor compiles the title matcher from the configured keywords.
func NewExtractor(cfg ExtractorConfig, log *zap.Logger) (*Extractor, error) {
	keywords := cfg.TitleKeywords
	if len(keywords) == 0 {
		keywords = DefaultTitleKeywords
	}

	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	if len(quoted) == 0 {
		return nil, eris.New("at least one non-empty title keyword is required")
	}

	titleRe, err := regexp.Compile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return nil, eris.Wrap(err, "compile title keywords")
	}

	fold := cases.Fold()
	profiles := make(map[string]string, len(cfg.Profiles))
	for company, keywords := range cfg.Profiles {
		profiles[fold.String(strings.TrimSpace(company))] = keywords
	}

	return &Extractor{
		titleRe:  titleRe,
		profiles: profiles,
		logger:   logger.WithFields(log),
	}, nil
}

// Extract parses text into a Document. It never fails: empty or
// unrecognizable text yields an empty document.
func (e *Extractor) Extract(text string) *Document {
	doc := Empty()
	if strings.TrimSpace(text) == "" {
		return doc
	}

	for _, line := range Lines(text) {
		role, ok := e.parseRole(line)
		if !ok {
			continue
		}
		doc.Roles = append(doc.Roles, role)
	}

	doc.RepositoryURLs = repositoryURLs(text)
	doc.ProfileURL = profileRe.FindString(text)

	e.logger.Debug("document extracted",
		zap.Int("roles", len(doc.Roles)),
		zap.Int("repositories", len(doc.RepositoryURLs)),
		zap.Bool("profile", doc.ProfileURL != ""),
	)

	return doc
}

// Lines splits text into trimmed non-blank lines.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func (e *Extractor) parseRole(line string) (Role, bool) {
	loc := e.titleRe.FindStringIndex(line)
	if loc == nil {
		return Role{}, false
	}

	title := line[loc[0]:loc[1]]
	start, end := parseDates(line)

	company := strings.Trim(line[:loc[0]], companyTrimSet)
	if company == "" {
		company = UnknownCompany
	}

	return Role{
		Title:            title,
		Company:          company,
		Start:            start,
		End:              end,
		Location:         location(line, loc[1]),
		FullTime:         !partTimeRe.MatchString(line),
		Description:      line,
		ExpectedKeywords: e.profiles[cases.Fold().String(company)],
	}, true
}

// location finds a "City, ST" token. Multi-word cities are only taken from
// the text after the title, where they cannot run into the company name.
// Leading month names and ongoing literals belong to the dates, not the city.
func location(line string, afterTitle int) string {
	m := locationRe.FindString(line[afterTitle:])
	if m == "" {
		return cityRe.FindString(line)
	}

	words := strings.Fields(m)
	for len(words) > 1 && !strings.HasSuffix(words[0], ",") && dateWordRe.MatchString(words[0]) {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// parseDates returns the first two date-like tokens of line as start and end.
func parseDates(line string) (dates.Date, dates.Date) {
	tokens := dateTokenRe.FindAllString(line, 2)

	var start, end dates.Date
	if len(tokens) > 0 {
		start = dates.Parse(tokens[0])
	}
	if len(tokens) > 1 {
		end = dates.Parse(tokens[1])
	}

	return start, end
}

func repositoryURLs(text string) []string {
	matches := repoURLRe.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))

	for _, m := range matches {
		m = strings.TrimRight(m, "./")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}

	return urls
}
