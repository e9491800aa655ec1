package recommend

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// strayPrefix is a leading artifact some models emit before the JSON body.
const strayPrefix = "ny"

var fencePattern = regexp.MustCompile("```[A-Za-z]*\\s*|\\s*```")

var errNotArray = errors.New("completion text is not a JSON array")

// ParseRecommendations recovers recommendations from raw completion text.
// It never fails: unusable text yields the parse fallback list, while a
// legitimate empty array yields an empty parsed result. A null element
// makes the whole array unusable.
func ParseRecommendations(raw string) Result {
	elements, err := decodeArray(clean(raw))
	if err != nil {
		return Result{Source: SourceFallbackParse, Recommendations: ParseFallback()}
	}

	recs := make([]Recommendation, len(elements))
	for i, el := range elements {
		if el == nil {
			return Result{Source: SourceFallbackParse, Recommendations: ParseFallback()}
		}
		recs[i] = normalize(el)
	}
	return Result{Source: SourceParsed, Recommendations: recs}
}

// clean strips code fences, the stray prefix and any preamble before the array.
func clean(raw string) string {
	text := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	text = strings.TrimPrefix(text, strayPrefix)
	if i := strings.IndexByte(text, '['); i > 0 {
		text = text[i:]
	}
	return text
}

// decodeArray decodes text as a JSON array. If that fails and text follows
// the last ']', it retries once without the trailing text.
func decodeArray(text string) ([]interface{}, error) {
	elements, err := decodeStrict(text)
	if err == nil {
		return elements, nil
	}
	if end := strings.LastIndexByte(text, ']'); end >= 0 && end < len(text)-1 {
		return decodeStrict(text[:end+1])
	}
	return nil, err
}

func decodeStrict(text string) ([]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}

	elements, ok := v.([]interface{})
	if !ok {
		return nil, errNotArray
	}
	return elements, nil
}

// normalize maps one decoded element onto a Recommendation with defaults.
// Non-object, non-null elements get all defaults.
func normalize(el interface{}) Recommendation {
	obj, _ := el.(map[string]interface{})
	return Recommendation{
		Title:  stringField(obj, "title", DefaultTitle),
		Year:   stringField(obj, "year", DefaultYear),
		Reason: stringField(obj, "reason", DefaultReason),
	}
}

func stringField(obj map[string]interface{}, key, fallback string) string {
	switch v := obj[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return fallback
}
