package classifier

import "github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"

// Exemplar is a labeled query the similarity fallback compares against.
type Exemplar struct {
	Intent query.Intent
	Text   string
}

// DefaultExemplars covers phrasings the keyword rules miss.
var DefaultExemplars = []Exemplar{
	{query.IntentCourseInfo, "what should i take next semester for my major"},
	{query.IntentCourseInfo, "is there an intro to neural networks offered"},
	{query.IntentCourseInfo, "which math requirement can i fulfill online"},
	{query.IntentCourseInfo, "what are the prerequisites for data structures"},
	{query.IntentCourseInfo, "how hard is organic chemistry"},
	{query.IntentFacultySearch, "who works on robotics in the engineering school"},
	{query.IntentFacultySearch, "someone doing research on climate modeling"},
	{query.IntentFacultySearch, "which people study natural language processing"},
	{query.IntentFacultySearch, "who is the chair of the physics department"},
	{query.IntentFacultySearch, "find an expert on cybersecurity"},
	{query.IntentDiningInfo, "where can i grab a bite near the union"},
	{query.IntentDiningInfo, "is anything open late for snacks"},
	{query.IntentDiningInfo, "what does the market serve today"},
	{query.IntentDiningInfo, "best place for pizza on campus"},
	{query.IntentTransitInfo, "how do i get downtown from campus"},
	{query.IntentTransitInfo, "when does the last bus leave daisy hill"},
	{query.IntentTransitInfo, "which line stops at the stadium"},
	{query.IntentTransitInfo, "getting to the airport without a car"},
}
