package classifier

import (
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

// courseCodeScore is what an extracted course code contributes to
// course_info. Every matching keyword pattern adds one.
const courseCodeScore = 3

// patterns hold the keyword rules per intent. A pattern counts once no
// matter how often it matches.
var patterns = map[query.Intent][]*regexp.Regexp{
	query.IntentCourseInfo: compile(
		`\b(course|courses|class|classes)\b`,
		`\b(prerequisite|prerequisites|corequisite|corequisites)\b`,
		`\b(credit|credits|credit hour|credit hours)\b`,
		`\b(enroll|enrollment|register|registration|waitlist)\b`,
		`\b(syllabus|curriculum|seminar|lecture)\b`,
		`\b(learning|programming|calculus|physics|chemistry|biology|engineering|statistics)\b`,
		`\b(undergraduate|graduate|grad|undergrad)\s+(course|courses|class|classes|level)\b`,
		`\b(take|taking|need to take)\b.*\b(course|class)\b`,
	),
	query.IntentFacultySearch: compile(
		`\b(professor|professors|faculty|researcher|researchers|instructor|instructors|teacher|teachers|advisor|lecturer)\b`,
		`\b(who teaches|taught by|who does research|expert in|specialist in)\b`,
		`\b(teach|teaches|teaching)\b`,
		`\b(research in|research on|working on|studies)\b`,
		`\b(office hours|email of|contact for)\b`,
	),
	query.IntentDiningInfo: compile(
		`\b(eat|food|dining|restaurant|hungry|lunch|dinner|breakfast|coffee|cafe|cafeteria|meal|menu)\b`,
		`\bwhere\b.*\b(eat|food|hungry)\b`,
		`\b(vegan|vegetarian|halal|gluten)\b`,
	),
	query.IntentTransitInfo: compile(
		`\b(bus|buses|transit|route|routes|transportation|shuttle|safebus|ride)\b`,
		`\b(parking|park and ride|permit)\b`,
		`\bhow do i get to\b`,
	),
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// ruleScores counts rule signals per intent over the corrected and expanded
// query text.
func ruleScores(q *query.Query) map[query.Intent]int {
	text := q.Expanded() + " \n " + q.Normalized
	scores := make(map[query.Intent]int)
	if len(q.CourseCodes()) > 0 {
		scores[query.IntentCourseInfo] = courseCodeScore
	}
	for intent, pats := range patterns {
		for _, p := range pats {
			if p.MatchString(text) {
				scores[intent]++
			}
		}
	}
	return scores
}

// bestRule picks the highest score, breaking ties by query.Intents order.
func bestRule(scores map[query.Intent]int) (query.Intent, int) {
	best, top := query.IntentGeneral, 0
	for _, intent := range query.Intents {
		if s := scores[intent]; s > top {
			best, top = intent, s
		}
	}
	return best, top
}

// ruleConfidence maps a rule score onto [0.6, 0.95].
func ruleConfidence(score int) float64 {
	if score <= 0 {
		return 0
	}
	return min(0.6+0.15*float64(score), 0.95)
}
