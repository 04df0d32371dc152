package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/resilience"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	CareerUndergraduate = "Undergraduate"
	CareerGraduate      = "Graduate"

	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxBodyBytes   = 4 << 20
	graduateNumber = 700
)

// statusError is a non-2xx answer from class search.
type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("class search returned HTTP %d", e.code) }

// ClassSearchFetcher posts the class-search form and parses the returned
// HTML fragment. Calls are rate limited, retried on transient failures and
// guarded by a circuit breaker.
type ClassSearchFetcher struct {
	baseURL string
	career  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// NewClassSearchFetcher builds a fetcher from cfg. m receives breaker state
// changes and may be nil.
func NewClassSearchFetcher(cfg config.LiveConfig, m *metrics.Metrics) *ClassSearchFetcher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	return &ClassSearchFetcher{
		baseURL: cfg.BaseURL,
		career:  cfg.Career,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: resilience.NewCircuitBreaker("class-search", resilience.CircuitBreakerConfig{
			FailureThreshold:    5,
			ResetTimeout:        30 * time.Second,
			HalfOpenMaxRequests: 1,
			OnStateChange: func(name string, _, to resilience.State) {
				m.SetBreakerState(name, int(to))
			},
		}),
		retry: resilience.RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Retryable:    retryable,
		},
		logger: slog.Default().With("component", "class-search"),
	}
}

// Fetch implements Fetcher.
func (f *ClassSearchFetcher) Fetch(ctx context.Context, req Request) (*Payload, error) {
	var sections []Section
	err := resilience.Retry(ctx, "class-search", f.retry, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		return f.breaker.Execute(func() error {
			s, err := f.post(ctx, req)
			if err != nil {
				return err
			}
			sections = s
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &Payload{
		Course:    req.Course,
		Semester:  req.Semester,
		Field:     req.Field,
		Sections:  sections,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (f *ClassSearchFetcher) post(ctx context.Context, req Request) ([]Section, error) {
	form := url.Values{
		"classesSearchText":        {req.Course},
		"searchCareer":             {f.careerFor(req.Course)},
		"searchTerm":               {req.Term},
		"searchSchool":             {""},
		"searchDept":               {""},
		"searchSubject":            {""},
		"searchCode":               {""},
		"textbookOptions":          {""},
		"searchCampus":             {""},
		"searchBuilding":           {""},
		"searchCourseNumberMin":    {"001"},
		"searchCourseNumberMax":    {"999"},
		"searchCreditHours":        {""},
		"searchInstructor":         {""},
		"searchStartTime":          {""},
		"searchEndTime":            {""},
		"searchClosed":             {"false"},
		"searchHonorsClasses":      {"false"},
		"searchShortClasses":       {"false"},
		"searchOnlineClasses":      {""},
		"searchIncludeExcludeDays": {"include"},
		"searchDays":               {""},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building class search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	if u, err := url.Parse(f.baseURL); err == nil && u.Host != "" {
		origin := u.Scheme + "://" + u.Host
		httpReq.Header.Set("Origin", origin)
		httpReq.Header.Set("Referer", origin+"/")
	}

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("posting class search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &statusError{code: resp.StatusCode}
	}
	sections, err := ParseSections(io.LimitReader(resp.Body, maxBodyBytes), req.Course)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("class search parsed", "course", req.Course, "term", req.Term, "sections", len(sections))
	return sections, nil
}

// careerFor uses the configured career, else guesses from the course
// number: 700 and above are graduate courses.
func (f *ClassSearchFetcher) careerFor(course string) string {
	if f.career != "" {
		return f.career
	}
	if i := strings.LastIndexByte(course, ' '); i >= 0 {
		digits := course[i+1:]
		if j := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); j >= 0 {
			digits = digits[:j]
		}
		if n, err := strconv.Atoi(digits); err == nil && n >= graduateNumber {
			return CareerGraduate
		}
	}
	return CareerUndergraduate
}

func retryable(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, errParse) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return !errors.Is(err, context.DeadlineExceeded)
}

var (
	errParse = errors.New("parsing class search response")

	sectionTypes = map[string]bool{"LEC": true, "LAB": true, "DIS": true, "SEM": true, "IND": true, "RSC": true, "FLD": true}

	topicRe    = regexp.MustCompile(`Topic:\s*(.+?)(?:\s{2,}|$)`)
	creditsRe  = regexp.MustCompile(`^(\d+)`)
	enrolledRe = regexp.MustCompile(`(\d+) students enrolled out of (\d+)`)
	daysRe     = regexp.MustCompile(`^((?:Mo|Tu|We|Th|Fr|Sa|Su|M|T|W|F)+)`)
	timeRe     = regexp.MustCompile(`(\d{1,2}:\d{2}\s*(?:AM|PM))\s*-\s*(\d{1,2}:\d{2}\s*(?:AM|PM))`)
)

// ParseSections extracts the sections of course from a class-search HTML
// fragment. Section tables under a heading for another course are skipped.
// Each section row may be followed by a "Notes" row carrying its meeting
// days, time and room.
func ParseSections(r io.Reader, course string) ([]Section, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errParse, err)
	}
	want := index.NormalizeCode(course)

	var sections []Section
	doc.Find("table.class_list").Each(func(_ int, table *goquery.Selection) {
		heading := strings.TrimSpace(table.ParentsFiltered("table").First().Find("h3").First().Text())
		if want != "" && heading != "" && headingCode(heading) != want {
			return
		}
		current := -1
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			first := strings.TrimSpace(cells.First().Text())
			switch {
			case sectionTypes[first]:
				sections = append(sections, parseSectionRow(first, cells))
				current = len(sections) - 1
			case first == "Notes" && current >= 0 && cells.Length() > 1:
				parseNotes(&sections[current], cells.Eq(1))
			}
		})
	})
	return sections, nil
}

// headingCode reads "EECS 700 Introduction to ..." as "EECS 700".
func headingCode(heading string) string {
	parts := strings.Fields(heading)
	if len(parts) < 2 {
		return index.NormalizeCode(heading)
	}
	return index.NormalizeCode(parts[0] + " " + parts[1])
}

func parseSectionRow(kind string, cells *goquery.Selection) Section {
	s := Section{Type: kind, Instructor: "TBA", Status: StatusUnknown}
	if cells.Length() > 1 {
		info := cells.Eq(1)
		text := strings.ReplaceAll(info.Text(), "\u00a0", " ")
		if strings.Contains(text, "Topic:") {
			if m := topicRe.FindStringSubmatch(text); m != nil {
				s.Topic = strings.TrimSpace(m[1])
			}
		}
		if name := strings.TrimSpace(info.Find("a[href*='directory.ku.edu']").First().Text()); name != "" {
			s.Instructor = name
		}
	}
	if cells.Length() > 2 {
		if m := creditsRe.FindStringSubmatch(strings.TrimSpace(cells.Eq(2).Text())); m != nil {
			s.Credits = m[1]
		}
	}
	if cells.Length() > 3 {
		s.ClassNumber = strings.TrimSpace(cells.Eq(3).Find("strong").First().Text())
	}
	if cells.Length() > 4 {
		span := cells.Eq(4).Find("span").First()
		if span.Length() > 0 {
			parseSeats(&s, strings.TrimSpace(span.Text()), span.AttrOr("title", ""))
		}
	}
	return s
}

func parseSeats(s *Section, text, title string) {
	switch {
	case strings.Contains(text, "Unopened"):
		s.Status = StatusUnopened
	case isDigits(text):
		s.Seats, _ = strconv.Atoi(text)
		s.Status = StatusOpen
		if s.Seats == 0 {
			s.Status = StatusFull
		}
		if m := enrolledRe.FindStringSubmatch(title); m != nil {
			s.Enrolled, _ = strconv.Atoi(m[1])
			s.Capacity, _ = strconv.Atoi(m[2])
		}
	case strings.Contains(text, "Closed"):
		s.Status = StatusFull
	}
}

func parseNotes(s *Section, cell *goquery.Selection) {
	text := strings.Join(strings.Fields(cellText(cell)), " ")
	if m := daysRe.FindStringSubmatch(text); m != nil {
		s.Days = m[1]
	}
	if m := timeRe.FindStringSubmatch(text); m != nil {
		s.Time = m[1] + " - " + m[2]
	}
	link := cell.Find("a[href*='maps.google']").First()
	if link.Length() > 0 {
		loc := strings.TrimSpace(link.Find("span").First().Text())
		if loc == "" {
			loc = strings.TrimSpace(link.Text())
		}
		s.Location = loc
	}
}

// cellText joins the text nodes of a cell with spaces so adjacent inline
// elements do not run together.
func cellText(cell *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, n *goquery.Selection) {
			if goquery.NodeName(n) == "#text" {
				if t := strings.TrimSpace(n.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(n)
		})
	}
	walk(cell)
	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
