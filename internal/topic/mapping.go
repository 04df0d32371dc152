// Package topic resolves free-text topics to canonical course codes using a
// curated table first and fuzzy token overlap against the course index
// second.
package topic

// Mapping is an ordered topic phrase table. Order matters for partial
// matches, which are reported in table order.
type Mapping []Entry

// Entry maps one topic phrase to course codes, most relevant first.
type Entry struct {
	Phrase  string
	Courses []string
}

// DefaultMapping is the curated topic table. "deep learning" is deliberately
// absent; it resolves through the fuzzy path.
var DefaultMapping = Mapping{
	{"machine learning", []string{"EECS 658", "EECS 836"}},
	{"deep reinforcement learning", []string{"EECS 700"}},
	{"reinforcement learning", []string{"EECS 700"}},
	{"artificial intelligence", []string{"EECS 649", "EECS 738"}},
	{"neural networks", []string{"EECS 738", "EECS 700"}},
	{"neural network", []string{"EECS 738", "EECS 700"}},
	{"computer vision", []string{"EECS 841"}},
	{"natural language processing", []string{"EECS 731"}},
	{"nlp", []string{"EECS 731"}},
	{"data science", []string{"EECS 731", "EECS 658"}},
	{"mobile robotics", []string{"EECS 700"}},
	{"robotics", []string{"EECS 690", "EECS 700"}},
	{"algorithms", []string{"EECS 660", "EECS 700"}},
	{"high performance computing", []string{"EECS 700"}},
	{"hpc", []string{"EECS 700"}},
	{"cyber physical systems", []string{"EECS 700"}},
	{"program synthesis", []string{"EECS 700"}},
	{"software engineering", []string{"EECS 448"}},
	{"databases", []string{"EECS 647"}},
	{"database", []string{"EECS 647"}},
	{"operating systems", []string{"EECS 678"}},
	{"computer networks", []string{"EECS 780"}},
	{"cybersecurity", []string{"EECS 710"}},
	{"security", []string{"EECS 710"}},
	{"supply chain", []string{"BSAN 460", "SCM 401"}},
	{"business analytics", []string{"BSAN 440", "BSAN 460"}},
	{"data analytics", []string{"BSAN 440"}},
}

// DepartmentHints lists the subjects a topic phrase most likely belongs to.
// A course whose subject appears here wins ties.
var DepartmentHints = map[string][]string{
	"learning":     {"EECS", "MATH", "STAT"},
	"intelligence": {"EECS"},
	"neural":       {"EECS"},
	"vision":       {"EECS"},
	"robotics":     {"EECS", "ME", "AE"},
	"algorithms":   {"EECS", "MATH"},
	"computing":    {"EECS"},
	"software":     {"EECS"},
	"database":     {"EECS"},
	"network":      {"EECS"},
	"security":     {"EECS"},
	"data":         {"EECS", "MATH", "BSAN"},
	"statistics":   {"MATH", "STAT"},
	"analytics":    {"BSAN", "EECS"},
	"supply":       {"SCM", "BSAN"},
	"business":     {"BSAN", "BUS", "SCM"},
	"aircraft":     {"AE"},
	"aerospace":    {"AE"},
	"physics":      {"PHSX"},
	"chemistry":    {"CHEM"},
	"biology":      {"BIOL"},
	"economics":    {"ECON"},
	"psychology":   {"PSYC"},
}
