package tmdb

// ListResponse is the paged movie list shape shared by search, popular,
// trending, discover and recommendation endpoints.
type ListResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is a movie entry from a TMDB list response.
type MovieResult struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    *string `json:"poster_path"`
	BackdropPath  *string `json:"backdrop_path"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	Adult         bool    `json:"adult"`
	GenreIDs      []int   `json:"genre_ids"`
}

// MovieDetails is the detailed movie info from TMDB, including the
// credits and similar sub-resources when requested via append_to_response.
type MovieDetails struct {
	ID            int              `json:"id"`
	Title         string           `json:"title"`
	OriginalTitle string           `json:"original_title"`
	Overview      string           `json:"overview"`
	ReleaseDate   string           `json:"release_date"`
	PosterPath    *string          `json:"poster_path"`
	BackdropPath  *string          `json:"backdrop_path"`
	VoteAverage   float64          `json:"vote_average"`
	VoteCount     int              `json:"vote_count"`
	Popularity    float64          `json:"popularity"`
	Runtime       int              `json:"runtime"`
	Status        string           `json:"status"`
	Tagline       string           `json:"tagline"`
	ImdbID        string           `json:"imdb_id"`
	Genres        []Genre          `json:"genres"`
	Credits       *CreditsResponse `json:"credits,omitempty"`
	Similar       *ListResponse    `json:"similar,omitempty"`
}

// Genre represents a genre from TMDB.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenresResponse is the response from /genre/movie/list.
type GenresResponse struct {
	Genres []Genre `json:"genres"`
}

// CreditsResponse is the credits sub-resource of a movie.
type CreditsResponse struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// CastMember represents a cast member from TMDB credits.
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	Order       int     `json:"order"`
	ProfilePath *string `json:"profile_path"`
}

// CrewMember represents a crew member from TMDB credits.
type CrewMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	Department  string  `json:"department"`
	ProfilePath *string `json:"profile_path"`
}

// ErrorResponse is an error from the TMDB API.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

// Movie is the normalized catalog entry returned by the client.
type Movie struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"originalTitle,omitempty"`
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"releaseDate,omitempty"`
	Year          int      `json:"year,omitempty"`
	PosterPath    string   `json:"posterPath,omitempty"`
	PosterURL     string   `json:"posterUrl,omitempty"`
	BackdropPath  string   `json:"backdropPath,omitempty"`
	BackdropURL   string   `json:"backdropUrl,omitempty"`
	VoteAverage   float64  `json:"voteAverage"`
	VoteCount     int      `json:"voteCount"`
	Popularity    float64  `json:"popularity,omitempty"`
	GenreIDs      []int    `json:"genreIds,omitempty"`
	Genres        []Genre  `json:"genres,omitempty"`
	Runtime       int      `json:"runtime,omitempty"`
	Tagline       string   `json:"tagline,omitempty"`
	ImdbID        string   `json:"imdbId,omitempty"`
	Credits       *Credits `json:"credits,omitempty"`
	Similar       []Movie  `json:"similar,omitempty"`
}

// Credits is the normalized cast and crew of a movie.
type Credits struct {
	Cast []Person `json:"cast"`
	Crew []Person `json:"crew"`
}

// Person is a normalized cast or crew member.
type Person struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Job       string `json:"job,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
}

// TimeWindow is the trending aggregation window.
type TimeWindow string

const (
	TimeWindowDay  TimeWindow = "day"
	TimeWindowWeek TimeWindow = "week"
)

// ParseTimeWindow maps user input to a TimeWindow, defaulting to week.
func ParseTimeWindow(s string) TimeWindow {
	if TimeWindow(s) == TimeWindowDay {
		return TimeWindowDay
	}
	return TimeWindowWeek
}
