package tactics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// SourceGame is one unanalyzed game as handed to the core: a stable id,
// the PGN tag pairs, and the movetext as SAN tokens. Moves are validated
// during replay, not here, so a corrupt ply surfaces as a skipped ply
// instead of rejecting the whole file.
type SourceGame struct {
	ID    string
	Tags  map[string]string
	Moves []string
}

// Tag returns a tag value or the empty string.
func (g *SourceGame) Tag(key string) string {
	return g.Tags[key]
}

// EloOf returns a player's rating tag as an int, 0 when missing or
// malformed.
func (g *SourceGame) EloOf(key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(g.Tag(key)))
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// CollectPGN lists the .pgn files directly under dir, sorted by name.
func CollectPGN(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pgn" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// LoadGames reads every game from one PGN file. Game ids are the file base
// name plus the game's index within the file, stable across runs.
func LoadGames(path string) ([]SourceGame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := decodePGN(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	base := filepath.Base(path)
	var games []SourceGame
	for i, raw := range splitGames(text) {
		games = append(games, SourceGame{
			ID:    fmt.Sprintf("%s#%d", base, i),
			Tags:  parseTags(raw),
			Moves: sanMoves(raw),
		})
	}
	return games, nil
}

// decodePGN returns the file content as UTF-8. Older PGN archives are
// frequently Latin-1; anything that is not already valid UTF-8 is decoded
// as ISO 8859-1.
func decodePGN(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		data = data[3:]
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	reader := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(decoded) {
		return "", errors.New("failed to decode Latin-1 PGN")
	}
	return string(decoded), nil
}

// splitGames separates a multi-game PGN by the blank line after the tag
// section and the blank line after the movetext.
func splitGames(text string) []string {
	var games []string
	var sb strings.Builder
	emptyLines := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			emptyLines++
			if emptyLines >= 2 && sb.Len() > 0 {
				games = append(games, sb.String())
				sb.Reset()
				emptyLines = 0
			}
			continue
		}
		// Blank lines before a game's first line do not count toward its
		// tag/movetext boundary.
		if sb.Len() == 0 {
			emptyLines = 0
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if sb.Len() > 0 {
		games = append(games, sb.String())
	}
	return games
}

var (
	tagPairRegex    = regexp.MustCompile(`\[(\w+)\s+"([^"]*)"\]`)
	tagsRegex       = regexp.MustCompile(`\[[^\]]*\]`)
	commentsRegex   = regexp.MustCompile(`\{[^}]*\}`)
	variationRegex  = regexp.MustCompile(`\([^()]*\)`)
	nagRegex        = regexp.MustCompile(`\$\d+`)
	moveNumberRegex = regexp.MustCompile(`\d+\.(\.\.)?`)
)

func parseTags(pgn string) map[string]string {
	tags := make(map[string]string, 16)
	for _, match := range tagPairRegex.FindAllStringSubmatch(pgn, -1) {
		tags[match[1]] = match[2]
	}
	return tags
}

// sanMoves strips tags, comments, nested variations, NAGs, move numbers
// and result tokens, leaving the mainline SAN tokens.
func sanMoves(pgn string) []string {
	pgn = tagsRegex.ReplaceAllString(pgn, "")
	pgn = commentsRegex.ReplaceAllString(pgn, "")
	for variationRegex.MatchString(pgn) {
		pgn = variationRegex.ReplaceAllString(pgn, "")
	}
	pgn = nagRegex.ReplaceAllString(pgn, "")
	pgn = moveNumberRegex.ReplaceAllString(pgn, " ")
	var moves []string
	for _, token := range strings.Fields(pgn) {
		switch token {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		token = strings.TrimRight(token, "!?")
		if token == "" {
			continue
		}
		moves = append(moves, token)
	}
	return moves
}
