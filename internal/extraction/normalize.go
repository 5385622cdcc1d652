package extraction

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer, aside, form, noscript, iframe"

var (
	spaceRuns   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// textOf strips boilerplate elements from a selection and returns its
// normalized text. Each selection is cloned so stripping never mutates the
// document other selectors will look at next.
func textOf(selection *goquery.Selection) string {
	if selection == nil || selection.Length() == 0 {
		return ""
	}
	cleaned := selection.Clone()
	cleaned.Find(nonContentSelectors).Remove()
	return CollapseWhitespace(cleaned.Text())
}

// CollapseWhitespace squeezes space runs and caps consecutive blank lines so
// scraped text compares and scores consistently.
func CollapseWhitespace(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
