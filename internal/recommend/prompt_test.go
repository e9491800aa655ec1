package recommend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "empty request",
			req:  Request{},
			want: "Recommend 5 movies" + formatInstruction,
		},
		{
			name: "title only",
			req:  Request{MovieTitle: "Inception"},
			want: `Recommend 5 movies similar to "Inception"` + formatInstruction,
		},
		{
			name: "all fields in fixed order",
			req: Request{
				MovieTitle:  "Heat",
				Genres:      []string{"Crime", "Thriller"},
				Actors:      []string{"Al Pacino", "Robert De Niro"},
				Directors:   []string{"Michael Mann"},
				Description: "a heist that goes wrong",
				Mood:        "tense",
				Era:         "1990s",
			},
			want: `Recommend 5 movies similar to "Heat" in the Crime, Thriller genre(s)` +
				` starring Al Pacino, Robert De Niro directed by Michael Mann` +
				` with the following elements: a heist that goes wrong with a tense mood from the 1990s era` +
				formatInstruction,
		},
		{
			name: "blank values are skipped",
			req: Request{
				MovieTitle: "   ",
				Genres:     []string{"", " Drama "},
				Actors:     []string{" "},
				Mood:       "\t",
			},
			want: "Recommend 5 movies in the Drama genre(s)" + formatInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPrompt(tt.req))
		})
	}
}

func TestBuildPrompt_AlwaysCarriesFormatInstruction(t *testing.T) {
	for _, req := range []Request{{}, {Era: "80s"}, {Genres: []string{"Horror"}}} {
		prompt := BuildPrompt(req)
		assert.NotEmpty(t, prompt)
		assert.True(t, strings.HasSuffix(prompt, formatInstruction))
		assert.Contains(t, prompt, "JSON array")
	}
}
