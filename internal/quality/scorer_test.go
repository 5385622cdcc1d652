package quality

import (
	"strings"
	"testing"

	"scribe/internal/config"
	"scribe/internal/workitem"
)

func newScorer() *Scorer {
	return NewScorer(config.Default().Quality)
}

func transcriptFixture() string {
	var b strings.Builder
	b.WriteString("Full transcript of the episode.\n\n")
	for i := 0; i < 60; i++ {
		b.WriteString("Host: Welcome back to the show, today we cover a topic that matters a great deal to listeners.\n")
		b.WriteString("Guest: Thanks for having me, I have been looking forward to this conversation for weeks now.\n\n")
	}
	return b.String()
}

func articleFixture() string {
	var b strings.Builder
	b.WriteString("A Considered Look at Battery Storage\n\nBy Jane Doe\n\n")
	for i := 0; i < 50; i++ {
		b.WriteString("Grid-scale batteries have quietly changed how utilities plan for peak demand. ")
		b.WriteString("Operators now bid storage into markets that were designed around fuel.\n\n")
	}
	return b.String()
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := newScorer()
	text := transcriptFixture()

	first := scorer.Score(text, workitem.KindPodcastEpisode)
	for i := 0; i < 5; i++ {
		if got := scorer.Score(text, workitem.KindPodcastEpisode); got != first {
			t.Fatalf("verdict changed between calls: %+v vs %+v", first, got)
		}
	}
}

func TestScoreAcceptsRealTranscript(t *testing.T) {
	verdict := newScorer().Score(transcriptFixture(), workitem.KindPodcastEpisode)
	if !verdict.Category.Meets(CategoryGood) {
		t.Fatalf("expected at least good for a speaker-labelled transcript, got %+v", verdict)
	}
	if verdict.Signals.Lexical == 0 {
		t.Fatal("speaker labels should register in the lexical signal")
	}
}

func TestScoreAcceptsRealArticle(t *testing.T) {
	verdict := newScorer().Score(articleFixture(), workitem.KindArticle)
	if !verdict.Category.Meets(CategoryAcceptable) {
		t.Fatalf("expected at least acceptable for a bylined article, got %+v", verdict)
	}
}

func TestScoreRejectsBoilerplate(t *testing.T) {
	tests := []string{
		"404 Not Found\nThe page you requested does not exist.",
		"Access Denied\nYou do not have permission to view this resource.",
		"Please enable JavaScript and checking your browser before continuing.",
		"",
	}
	scorer := newScorer()
	for _, text := range tests {
		if verdict := scorer.Score(text, workitem.KindArticle); verdict.Category != CategoryReject {
			t.Fatalf("expected reject for %q, got %+v", text, verdict)
		}
	}
}

func TestScoreMidLengthProseLandsGood(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("We heard the case and ruled on it this week. ")
	}
	verdict := newScorer().Score(b.String(), workitem.KindArticle)
	if verdict.Category != CategoryGood {
		t.Fatalf("clean mid-length prose should land good, got %+v", verdict)
	}
}

func TestScoreBuriedFingerprintSubtractsWithoutRejecting(t *testing.T) {
	scorer := newScorer()
	clean := scorer.Score(transcriptFixture(), workitem.KindPodcastEpisode)
	tainted := scorer.Score(transcriptFixture()+"\nSubscribe to continue reading our newsletter.", workitem.KindPodcastEpisode)

	if tainted.Category == CategoryReject {
		t.Fatalf("a fingerprint buried in a full transcript must not reject it: %+v", tainted)
	}
	if tainted.Signals.Boilerplate >= 0 {
		t.Fatalf("fingerprint hit must surface as a negative signal, got %+v", tainted.Signals)
	}
	if tainted.Score >= clean.Score {
		t.Fatalf("fingerprint hit must lower the score: %f vs %f", tainted.Score, clean.Score)
	}
}

func TestScoreRejectsShortFragments(t *testing.T) {
	verdict := newScorer().Score("Listen to this episode on your favorite app.", workitem.KindPodcastEpisode)
	if verdict.Category != CategoryReject {
		t.Fatalf("expected reject for a stub page, got %+v", verdict)
	}
}

func TestLengthSignalSaturates(t *testing.T) {
	scorer := newScorer()
	long := scorer.lengthSignal(scorer.cfg.SaturationLength * 10)
	if long != 1 {
		t.Fatalf("expected saturation at 1, got %f", long)
	}
	short := scorer.lengthSignal(scorer.cfg.MinLength / 2)
	if short >= long {
		t.Fatal("short text must score below saturated text")
	}
}

func TestCategoryMeets(t *testing.T) {
	if !CategoryExcellent.Meets(CategoryAcceptable) {
		t.Fatal("excellent should satisfy an acceptable bar")
	}
	if CategoryAcceptable.Meets(CategoryGood) {
		t.Fatal("acceptable must not satisfy a good bar")
	}
	if !CategoryGood.Meets(CategoryGood) {
		t.Fatal("a category satisfies itself")
	}
}

func TestParseCategory(t *testing.T) {
	if got := ParseCategory("Excellent"); got != CategoryExcellent {
		t.Fatalf("got %q", got)
	}
	if got := ParseCategory("unknown"); got != CategoryAcceptable {
		t.Fatalf("unknown values fall back to acceptable, got %q", got)
	}
}
