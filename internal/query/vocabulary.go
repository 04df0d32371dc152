package query

// Synonyms expand abbreviations and slang. Two-word keys are matched before
// single words.
var Synonyms = map[string]string{
	"prereq":    "prerequisite",
	"prereqs":   "prerequisites",
	"coreq":     "corequisite",
	"coreqs":    "corequisites",
	"prof":      "professor",
	"profs":     "professors",
	"dept":      "department",
	"intro":     "introduction",
	"adv":       "advanced",
	"grad":      "graduate",
	"undergrad": "undergraduate",
	"lab":       "laboratory",
	"sem":       "seminar",
	"lec":       "lecture",
	"rec":       "recitation",
	"ml":        "machine learning",
	"ai":        "artificial intelligence",
	"dl":        "deep learning",
	"rl":        "reinforcement learning",
	"nlp":       "natural language processing",
	"cv":        "computer vision",
	"ds":        "data science",
	"hpc":       "high performance computing",
	"os":        "operating systems",
	"db":        "database",
	"cs":        "computer science",
	"ee":        "electrical engineering",
	"bio":       "biology",
	"chem":      "chemistry",
	"phys":      "physics",
	"psych":     "psychology",
	"econ":      "economics",
	"poli sci":  "political science",
	"polisci":   "political science",
	"comm":      "communication",
	"calc":      "calculus",
	"stats":     "statistics",
	"stat":      "statistics",
	"orgo":      "organic chemistry",
	"ochem":     "organic chemistry",
	"biochem":   "biochemistry",
	"class":     "course",
	"classes":   "courses",
}

// DepartmentAliases maps a phrase to the canonical department code used for
// course subjects and faculty departments.
var DepartmentAliases = map[string]string{
	"eecs":                   "EECS",
	"computer science":       "EECS",
	"computer engineering":   "EECS",
	"electrical engineering": "EECS",
	"cs":                     "EECS",
	"ece":                    "EECS",
	"cse":                    "EECS",
	"math":                   "MATH",
	"mathematics":            "MATH",
	"physics":                "PHSX",
	"astronomy":              "PHSX",
	"chemistry":              "CHEM",
	"psychology":             "PSYC",
	"biology":                "BIOL",
	"economics":              "ECON",
	"history":                "HIST",
	"english":                "ENGL",
	"philosophy":             "PHIL",
	"sociology":              "SOC",
	"anthropology":           "ANTH",
	"geology":                "GEOL",
	"journalism":             "JOUR",
	"political science":      "POLS",
	"aerospace":              "AE",
	"aerospace engineering":  "AE",
	"mechanical engineering": "ME",
	"civil engineering":      "CE",
	"architecture":           "ARCH",
	"music":                  "MUSC",
	"business":               "BUS",
	"business analytics":     "BSAN",
	"pharmacy":               "PHAR",
	"nursing":                "NURS",
	"education":              "EDUC",
}

type marker struct {
	phrase string
	field  LiveField
}

// freshnessMarkers signal that the answer depends on live class data.
var freshnessMarkers = []marker{
	{"who teaches", LiveInstructor},
	{"taught by", LiveInstructor},
	{"instructor", LiveInstructor},
	{"sections", LiveSections},
	{"seats", LiveSeats},
	{"seat", LiveSeats},
	{"available", LiveSeats},
	{"availability", LiveSeats},
	{"open", LiveSeats},
	{"enroll", LiveSeats},
	{"enrollment", LiveSeats},
	{"enrolled", LiveSeats},
	{"waitlist", LiveSeats},
	{"full", LiveSeats},
	{"this semester", LiveSeats},
}

// fieldHints refine the live field of a query that already has a freshness
// marker.
var fieldHints = []marker{
	{"schedule", LiveSchedule},
	{"what time", LiveSchedule},
	{"when does", LiveSchedule},
	{"meeting times", LiveSchedule},
	{"meets", LiveSchedule},
	{"location", LiveLocation},
	{"where does", LiveLocation},
	{"room", LiveLocation},
	{"classroom", LiveLocation},
}

var livePriority = map[LiveField]int{
	LiveInstructor: 4,
	LiveSections:   3,
	LiveSchedule:   2,
	LiveLocation:   1,
	LiveSeats:      0,
}

var completeListMarkers = []string{
	"all", "every", "complete list", "full list", "list all", "show all", "how many", "entire",
}

var stopWords = setOf(
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has", "in", "is", "it",
	"its", "of", "on", "or", "that", "the", "to", "was", "were", "will", "with", "this",
	"what", "when", "where", "who", "which", "if", "do", "does", "not", "no", "so", "can",
	"i", "me", "my", "you", "your", "we", "there", "how", "about", "any", "some",
)

// protectedWords are valid words that spelling correction must leave alone.
var protectedWords = setOf(
	"been", "being", "whom", "whose", "why", "all", "could", "would", "should", "may",
	"might", "must", "did", "he", "she", "they", "these", "those", "here", "into", "through",
	"course", "courses", "class", "classes", "credit", "credits", "hour", "hours", "level",
	"department", "school", "college", "undergraduate", "graduate", "freshman", "sophomore",
	"junior", "senior", "fall", "spring", "summer", "winter", "semester", "easy", "hard",
	"difficult", "simple", "basic", "advanced", "online", "hybrid", "person",
	"professor", "professors", "faculty", "teaches", "teach", "taught", "teacher", "research",
	"researcher", "expert", "works", "working", "dining", "food", "eat", "lunch", "dinner",
	"breakfast", "coffee", "cafe", "hungry", "meal", "bus", "buses", "route", "routes",
	"transit", "parking", "shuttle", "safebus", "stop", "stops", "housing", "dorm",
	"tuition", "fees", "cost", "seats", "seat", "open", "full", "waitlist", "enroll",
	"enrolled", "enrollment", "available", "availability", "instructor", "sections",
	"section", "schedule", "room", "location", "list", "show", "every", "entire", "many",
	"offered", "offer", "take", "taking", "need", "want", "find", "near", "campus",
	"ethics", "union", "library", "good", "best", "next", "today", "time", "times",
)

// courseVocabulary holds correction targets common in course titles.
var courseVocabulary = []string{
	"introduction", "intermediate", "advanced", "principles", "fundamentals", "foundations",
	"theory", "practice", "analysis", "design", "systems", "methods", "applications",
	"programming", "engineering", "science", "mathematics", "learning", "machine",
	"artificial", "intelligence", "data", "structures", "algorithms", "networks", "security",
	"database", "databases", "software", "hardware", "computer", "computing", "physics",
	"chemistry", "biology", "psychology", "economics", "history", "philosophy", "literature",
	"writing", "research", "calculus", "algebra", "geometry", "statistics", "probability",
	"organic", "inorganic", "biochemistry", "molecular", "cellular", "mechanics", "dynamics",
	"thermodynamics", "electronics", "communication", "media", "journalism", "business",
	"management", "accounting", "finance", "marketing", "music", "theatre", "dance", "film",
	"health", "nursing", "pharmacy", "medicine", "education", "teaching", "curriculum",
	"leadership", "social", "political", "international", "global", "environmental",
	"sustainability", "climate", "energy", "robotics", "vision", "neural", "language",
	"natural", "processing", "reinforcement", "deep", "cybersecurity", "operating",
	"compilers", "graphics", "embedded", "wireless", "distributed", "parallel",
	"performance", "analytics", "supply", "chain", "prerequisite", "prerequisites",
}

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func isStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

func isNumber(s string) bool {
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
