package recommend

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fallbacks.yaml
var fallbacksYAML []byte

type fallbackLists struct {
	Parse     []Recommendation `yaml:"parse"`
	Transport []Recommendation `yaml:"transport"`
}

var fallbacks = mustLoadFallbacks(fallbacksYAML)

func mustLoadFallbacks(data []byte) fallbackLists {
	var lists fallbackLists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		panic(fmt.Sprintf("recommend: invalid embedded fallbacks: %v", err))
	}
	if len(lists.Parse) == 0 || len(lists.Transport) == 0 {
		panic("recommend: embedded fallbacks must not be empty")
	}
	return lists
}

// ParseFallback returns the list used when completion text is unusable.
func ParseFallback() []Recommendation {
	return append([]Recommendation(nil), fallbacks.Parse...)
}

// TransportFallback returns the list used when the completion call fails.
func TransportFallback() []Recommendation {
	return append([]Recommendation(nil), fallbacks.Transport...)
}

// TransportFailure is the Result for a failed completion call.
func TransportFailure() Result {
	return Result{Source: SourceFallbackTransport, Recommendations: TransportFallback()}
}
