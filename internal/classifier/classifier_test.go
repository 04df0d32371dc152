package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/vector"
)

var pre = query.NewPreprocessor(query.Vocabulary{Subjects: []string{"EECS", "MATH", "BIOL"}})

type brokenEmbedder struct{}

func (brokenEmbedder) Dimension() int { return 16 }
func (brokenEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

func TestRuleClassification(t *testing.T) {
	c := New(context.Background(), vector.NewHashEmbedder(256), Options{}, nil)
	tests := []struct {
		raw        string
		want       query.Intent
		confidence float64
	}{
		{"EECS 700 seats", query.IntentCourseInfo, 0.95},
		{"who teaches AI ethics", query.IntentFacultySearch, 0.9},
		{"who teaches machine learning", query.IntentFacultySearch, 0.9},
		{"deep learning courses", query.IntentCourseInfo, 0.9},
		{"where can I eat lunch", query.IntentDiningInfo, 0.9},
		{"bus to downtown", query.IntentTransitInfo, 0.75},
		{"course about the bus", query.IntentCourseInfo, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q := pre.Preprocess(tt.raw)
			got, conf := c.Classify(context.Background(), q)
			if got != tt.want {
				t.Errorf("intent = %s, want %s", got, tt.want)
			}
			if diff := conf - tt.confidence; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %f, want %f", conf, tt.confidence)
			}
			if q.Intent() != got {
				t.Errorf("query intent = %s, want %s", q.Intent(), got)
			}
		})
	}
}

func TestExemplarFallback(t *testing.T) {
	c := New(context.Background(), vector.NewHashEmbedder(256), Options{}, nil)
	q := pre.Preprocess("is anything open late for snacks")
	if got, conf := c.Classify(context.Background(), q); got != query.IntentDiningInfo || conf < DefaultExemplarThreshold {
		t.Errorf("Classify = %s (%f), want dining_info from exemplar", got, conf)
	}
}

func TestDefaultsToGeneral(t *testing.T) {
	tests := []struct {
		name string
		c    *Classifier
	}{
		{"no signal", New(context.Background(), vector.NewHashEmbedder(256), Options{}, nil)},
		{"exemplar embedding failed", New(context.Background(), brokenEmbedder{}, Options{}, nil)},
		{"no embedder", New(context.Background(), nil, Options{}, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "zxqv plorb"
			if tt.name != "no signal" {
				raw = "is anything open late for snacks"
			}
			got, conf := tt.c.Classify(context.Background(), pre.Preprocess(raw))
			if got != query.IntentGeneral || conf != generalConfidence {
				t.Errorf("Classify(%q) = %s (%f), want general", raw, got, conf)
			}
		})
	}
}

func TestClassifyIsDeterministicAndFinal(t *testing.T) {
	c := New(context.Background(), vector.NewHashEmbedder(256), Options{}, nil)
	for i := 0; i < 3; i++ {
		q := pre.Preprocess("which people study natural language processing")
		got, _ := c.Classify(context.Background(), q)
		if got != query.IntentFacultySearch {
			t.Fatalf("run %d: intent = %s", i, got)
		}
	}

	q := pre.Preprocess("bus routes")
	if err := q.SetIntent(query.IntentGeneral, 0.5); err != nil {
		t.Fatal(err)
	}
	if got, conf := c.Classify(context.Background(), q); got != query.IntentGeneral || conf != 0.5 {
		t.Errorf("pre-set intent overwritten: %s (%f)", got, conf)
	}
}

func TestRuleTieBreakOrder(t *testing.T) {
	scores := map[query.Intent]int{
		query.IntentTransitInfo:   2,
		query.IntentDiningInfo:    2,
		query.IntentFacultySearch: 1,
	}
	if got, score := bestRule(scores); got != query.IntentDiningInfo || score != 2 {
		t.Errorf("bestRule = %s/%d, want dining_info/2", got, score)
	}
	if got, _ := bestRule(nil); got != query.IntentGeneral {
		t.Errorf("empty scores = %s", got)
	}
}
