package storage

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// SnippetContext is the number of characters kept on each side of a
// match in a search snippet.
const SnippetContext = 30

// Match is one document whose text contains the query.
type Match struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`

	// Start and End delimit the matched text within Snippet, in runes.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Search returns the text files under the base directory that contain
// query, ignoring case. Text and query are compared in NFC form. The
// snippet is the first occurrence with SnippetContext characters around
// it, newlines replaced by spaces. Files that cannot be read are logged
// and skipped. A missing base directory yields no matches.
func (s *Store) Search(query string) ([]Match, error) {
	q := foldRunes(norm.NFC.String(query))
	if len(q) == 0 {
		return nil, ErrEmptyQuery
	}

	if ok, err := afero.DirExists(s.fs, s.base); err != nil || !ok {
		return nil, err
	}

	var matches []Match
	err := afero.Walk(s.fs, s.base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("cannot read search path")
			return nil
		}
		if info.IsDir() || filepath.Ext(path) != TextExt {
			return nil
		}

		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("cannot read text file")
			return nil
		}
		if m, ok := findSnippet([]rune(norm.NFC.String(string(data))), q); ok {
			m.Path = path
			matches = append(matches, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// findSnippet looks for the folded query in content.
func findSnippet(content, query []rune) (Match, bool) {
	idx := indexRunes(foldSlice(content), query)
	if idx < 0 {
		return Match{}, false
	}
	start := max(idx-SnippetContext, 0)
	end := min(idx+len(query)+SnippetContext, len(content))

	return Match{
		Snippet: strings.ReplaceAll(string(content[start:end]), "\n", " "),
		Start:   idx - start,
		End:     idx - start + len(query),
	}, true
}

// foldRunes lower-cases s rune by rune, so rune offsets are preserved.
func foldRunes(s string) []rune {
	return foldSlice([]rune(s))
}

func foldSlice(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(s, sub []rune) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j, r := range sub {
			if s[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
