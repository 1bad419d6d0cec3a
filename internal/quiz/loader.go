package quiz

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/verdantchat/gatekeeper/internal/models"
)

// letters are the fixed option labels answers are matched against.
var letters = []string{"A", "B", "C", "D"}

// Load reads and validates the question file.
func Load(path string) ([]models.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz file: %w", err)
	}

	var questions []models.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("parse quiz file: %w", err)
	}

	validate := validator.New()
	for i, q := range questions {
		if err := validate.Struct(q); err != nil {
			return nil, fmt.Errorf("quiz question %d invalid: %w", i, err)
		}
		if len(q.Options) != len(letters) {
			return nil, fmt.Errorf("quiz question %d must have %d options, has %d", i, len(letters), len(q.Options))
		}
		for letter, opt := range q.Options {
			if opt.Text == "" {
				return nil, fmt.Errorf("quiz question %d option %s has empty text", i, letter)
			}
		}
	}
	return questions, nil
}

// Selector picks the question set for one quiz run: the anchor question
// first, then a random sample of the rest, each with freshly shuffled
// options.
type Selector struct {
	anchor    *models.Question
	remainder []models.Question
	sample    int
}

// NewSelector builds a selector over the loaded questions. anchorText names
// the question that opens every quiz; pass "" to sample all questions
// uniformly. sample is the number of non-anchor questions per run.
func NewSelector(questions []models.Question, anchorText string, sample int) (*Selector, error) {
	s := &Selector{sample: sample}

	for i := range questions {
		if anchorText != "" && questions[i].Text == anchorText {
			q := questions[i]
			s.anchor = &q
			continue
		}
		s.remainder = append(s.remainder, questions[i])
	}

	if anchorText != "" && s.anchor == nil {
		return nil, fmt.Errorf("anchor question not found in quiz file")
	}
	if len(s.remainder) < sample {
		return nil, fmt.Errorf("quiz file has %d sampleable questions, need %d", len(s.remainder), sample)
	}
	return s, nil
}

// Pick returns the questions for one run. Option order is randomized onto
// the fixed letters so answer positions differ between runs, while text and
// point values stay paired.
func (s *Selector) Pick() []models.Question {
	picked := make([]models.Question, 0, s.sample+1)
	if s.anchor != nil {
		picked = append(picked, *s.anchor)
	}
	picked = append(picked, lo.Samples(s.remainder, s.sample)...)

	for i := range picked {
		picked[i] = shuffleOptions(picked[i])
	}
	return picked
}

func shuffleOptions(q models.Question) models.Question {
	values := lo.Shuffle(lo.Values(q.Options))

	shuffled := make(map[string]models.Option, len(values))
	for i, letter := range letters {
		shuffled[letter] = values[i]
	}
	return models.Question{Text: q.Text, Options: shuffled}
}
