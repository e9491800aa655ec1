package recommend

import (
	"strings"
)

const (
	basePrompt        = "Recommend 5 movies"
	formatInstruction = ". For each movie, provide only the title, year, and a brief reason why it's recommended. " +
		"Format the response as a simple JSON array with objects containing 'title', 'year', and 'reason' fields. " +
		"Keep each reason under 100 characters. Ensure the JSON is valid and complete."
)

// BuildPrompt renders preferences into a completion prompt. Clauses appear
// in a fixed order and empty fields are skipped.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if title := strings.TrimSpace(req.MovieTitle); title != "" {
		b.WriteString(` similar to "` + title + `"`)
	}
	if genres := nonEmpty(req.Genres); len(genres) > 0 {
		b.WriteString(" in the " + strings.Join(genres, ", ") + " genre(s)")
	}
	if actors := nonEmpty(req.Actors); len(actors) > 0 {
		b.WriteString(" starring " + strings.Join(actors, ", "))
	}
	if directors := nonEmpty(req.Directors); len(directors) > 0 {
		b.WriteString(" directed by " + strings.Join(directors, ", "))
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		b.WriteString(" with the following elements: " + desc)
	}
	if mood := strings.TrimSpace(req.Mood); mood != "" {
		b.WriteString(" with a " + mood + " mood")
	}
	if era := strings.TrimSpace(req.Era); era != "" {
		b.WriteString(" from the " + era + " era")
	}

	b.WriteString(formatInstruction)
	return b.String()
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
