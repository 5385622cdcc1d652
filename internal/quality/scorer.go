package quality

import (
	"math"
	"regexp"
	"strings"

	"scribe/internal/config"
	"scribe/internal/workitem"
)

// Category buckets a score against the configured thresholds.
type Category string

const (
	CategoryReject     Category = "reject"
	CategoryAcceptable Category = "acceptable"
	CategoryGood       Category = "good"
	CategoryExcellent  Category = "excellent"
)

// Meets reports whether the category satisfies a minimum acceptance bar.
func (c Category) Meets(minimum Category) bool {
	return categoryOrder[c] >= categoryOrder[minimum]
}

var categoryOrder = map[Category]int{
	CategoryReject:     0,
	CategoryAcceptable: 1,
	CategoryGood:       2,
	CategoryExcellent:  3,
}

// ParseCategory maps a config string to a Category; unknown values fall back
// to acceptable.
func ParseCategory(value string) Category {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(CategoryReject):
		return CategoryReject
	case string(CategoryGood):
		return CategoryGood
	case string(CategoryExcellent):
		return CategoryExcellent
	default:
		return CategoryAcceptable
	}
}

// Signals exposes the individual measurements behind a verdict so operators
// can see why a candidate scored the way it did.
type Signals struct {
	Length      float64 `json:"length"`
	Lexical     float64 `json:"lexical"`
	Structural  float64 `json:"structural"`
	Boilerplate float64 `json:"boilerplate"`
}

// Verdict is the scorer's judgment of one extracted text.
type Verdict struct {
	Score    float64  `json:"score"`
	Category Category `json:"category"`
	Signals  Signals  `json:"signals"`
}

// Scorer grades extracted text. Scoring is pure arithmetic over the input:
// the same text and kind always produce the same verdict.
type Scorer struct {
	cfg config.Quality
}

// NewScorer builds a scorer from the quality config.
func NewScorer(cfg config.Quality) *Scorer {
	return &Scorer{cfg: cfg}
}

// boilerplateFingerprints mark pages that render an error or a paywall where
// the artifact should be. A hit near the top of the page forces a reject; a
// hit buried further down only subtracts from the score, so a long transcript
// with a "subscribe" footer is not thrown away.
var boilerplateFingerprints = []string{
	"404 not found",
	"page not found",
	"access denied",
	"enable javascript",
	"checking your browser",
	"are you a robot",
	"subscribe to continue",
	"sign in to read",
	"this content is unavailable",
}

// Score grades text extracted for a work item of the given kind. The weighted
// blend of length, lexical, and structural signals maps onto the configured
// category thresholds.
func (s *Scorer) Score(text string, kind workitem.Kind) Verdict {
	normalized := strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return Verdict{Category: CategoryReject}
	}

	signals := Signals{
		Length:      s.lengthSignal(len(text)),
		Lexical:     s.lexicalSignal(text, normalized, kind),
		Structural:  s.structuralSignal(text),
		Boilerplate: boilerplateSignal(normalized),
	}

	score := s.cfg.LengthWeight*signals.Length +
		s.cfg.LexicalWeight*signals.Lexical +
		s.cfg.StructuralWeight*signals.Structural +
		signals.Boilerplate
	if s.cfg.MinLength > 0 && len(text) < s.cfg.MinLength {
		// Sub-minimum text never clears half the scale, however clean its
		// sentences read.
		score *= 0.5 * float64(len(text)) / float64(s.cfg.MinLength)
	}
	if score < 0 {
		score = 0
	}

	category := s.categorize(score)
	if leadsWithBoilerplate(normalized) {
		// A fingerprint at the top of the page means the page is the error,
		// not an article that happens to mention one.
		category = CategoryReject
	}

	return Verdict{
		Score:    score,
		Category: category,
		Signals:  signals,
	}
}

func (s *Scorer) categorize(score float64) Category {
	switch {
	case score < s.cfg.RejectBelow:
		return CategoryReject
	case score > s.cfg.ExcellentAbove:
		return CategoryExcellent
	case score > s.cfg.GoodAbove:
		return CategoryGood
	default:
		return CategoryAcceptable
	}
}

const (
	// boilerplatePenalty is subtracted from the score per fingerprint hit.
	boilerplatePenalty = 0.35
	// boilerplateLeadWindow is how close to the top of the page a fingerprint
	// must sit to force a reject outright.
	boilerplateLeadWindow = 200
)

func boilerplateSignal(normalized string) float64 {
	penalty := 0.0
	for _, fingerprint := range boilerplateFingerprints {
		if strings.Contains(normalized, fingerprint) {
			penalty += boilerplatePenalty
		}
	}
	if penalty > 1 {
		penalty = 1
	}
	return -penalty
}

func leadsWithBoilerplate(normalized string) bool {
	for _, fingerprint := range boilerplateFingerprints {
		if idx := strings.Index(normalized, fingerprint); idx >= 0 && idx < boilerplateLeadWindow {
			return true
		}
	}
	return false
}

// lengthSignal saturates at the configured length so a 100k-character
// transcript does not drown out the other signals. The cube-root curve keeps
// a couple thousand characters of real prose worth most of the credit a
// full-length piece gets.
func (s *Scorer) lengthSignal(length int) float64 {
	saturation := s.cfg.SaturationLength
	if saturation <= 0 {
		saturation = 20000
	}
	ratio := float64(length) / float64(saturation)
	if ratio > 1 {
		ratio = 1
	}
	return math.Cbrt(ratio)
}

var (
	speakerLabelPattern = regexp.MustCompile(`(?m)^[A-Z][\w .'\-]{0,40}:\s`)
	timestampPattern    = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`)
	bylinePattern       = regexp.MustCompile(`(?im)^\s*by\s+[A-Z][\w.\-]+(\s+[A-Z][\w.\-]+)*\s*$`)
)

// lexicalSignal measures kind-specific vocabulary. Transcripts are recognized
// by speaker labels and timestamps, articles by bylines and paragraph prose.
func (s *Scorer) lexicalSignal(text, normalized string, kind workitem.Kind) float64 {
	switch kind {
	case workitem.KindPodcastEpisode:
		speakers := len(speakerLabelPattern.FindAllString(text, 40))
		timestamps := len(timestampPattern.FindAllString(text, 20))
		signal := float64(speakers)/20 + float64(timestamps)/40
		if strings.Contains(normalized, "transcript") {
			signal += 0.15
		}
		if signal > 1 {
			signal = 1
		}
		return signal
	default:
		signal := 0.0
		if bylinePattern.MatchString(text) {
			signal += 0.3
		}
		paragraphs := strings.Count(text, "\n\n") + 1
		signal += float64(paragraphs) / 20
		if signal > 1 {
			signal = 1
		}
		return signal
	}
}

var sentenceEndPattern = regexp.MustCompile(`[.!?]["')\]]?(\s|$)`)

// structuralSignal checks that the text reads like prose: sentences of a
// plausible length rather than one unbroken run or a list of fragments.
func (s *Scorer) structuralSignal(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	sentences := len(sentenceEndPattern.FindAllString(text, -1))
	if sentences == 0 {
		return 0.1
	}
	wordsPerSentence := float64(words) / float64(sentences)

	// Prose averages roughly 10-30 words per sentence; score fades toward
	// zero outside that band.
	var signal float64
	switch {
	case wordsPerSentence >= 8 && wordsPerSentence <= 30:
		signal = 1
	case wordsPerSentence < 8:
		signal = wordsPerSentence / 8
	default:
		signal = 1 - (wordsPerSentence-30)/60
		if signal < 0.1 {
			signal = 0.1
		}
	}
	// A stub of a few sentences is not structure worth rewarding.
	if words < 50 {
		signal *= float64(words) / 50
	}
	return signal
}
