// Package vote builds a ballot from free-text recommendations and tallies
// one vote per participant with deterministic tie-breaking.
package vote

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NoComment marks an abstaining recommendation or vote
const NoComment = "No comment"

// Options controls ballot construction
type Options struct {
	// MinLength is the length a recommendation must exceed to count as substantial
	MinLength int
	// Size is the maximum ballot length
	Size int
	// MinSize triggers padding with shorter recommendations when fewer substantial ones exist
	MinSize int
}

// DefaultOptions returns the standard ballot settings
func DefaultOptions() Options {
	return Options{MinLength: 50, Size: 5, MinSize: 3}
}

// IsAbstention reports whether text is empty or declines to comment
func IsAbstention(text string) bool {
	return strings.TrimSpace(text) == "" || strings.Contains(text, NoComment)
}

// Ballot selects the recommendations eligible for voting, most detailed first
func Ballot(recs []string, opts Options) []string {
	seen := make(map[string]bool)
	var substantial []string
	for _, rec := range recs {
		if IsAbstention(rec) || utf8.RuneCountInString(rec) <= opts.MinLength || seen[rec] {
			continue
		}
		seen[rec] = true
		substantial = append(substantial, rec)
	}

	sort.SliceStable(substantial, func(i, j int) bool {
		return utf8.RuneCountInString(substantial[i]) > utf8.RuneCountInString(substantial[j])
	})
	if len(substantial) > opts.Size {
		substantial = substantial[:opts.Size]
	}

	if len(substantial) >= opts.MinSize {
		return substantial
	}

	ballot := substantial
	for _, rec := range recs {
		if len(ballot) >= opts.Size {
			break
		}
		if IsAbstention(rec) || seen[rec] {
			continue
		}
		seen[rec] = true
		ballot = append(ballot, rec)
	}
	return ballot
}

var firstInt = regexp.MustCompile(`\d+`)

// ParseChoice maps a free-text answer to a 0-based ballot index. The first
// integer in text is read as a 1-based choice; anything unusable selects 0.
func ParseChoice(text string, n int) int {
	match := firstInt.FindString(text)
	if match == "" {
		return 0
	}
	choice, err := strconv.Atoi(match)
	if err != nil || choice < 1 || choice > n {
		return 0
	}
	return choice - 1
}

// promptExcerpt is how many characters of each ballot entry a vote prompt shows
const promptExcerpt = 100

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Prompt asks a persona to choose one ballot entry by number
func Prompt(personaName string, ballot []string) string {
	var list strings.Builder
	for i, rec := range ballot {
		fmt.Fprintf(&list, "%d. %s...\n", i+1, truncate(rec, promptExcerpt))
	}

	return fmt.Sprintf("As %s, choose the best recommendation from these options:\n\n%s\nRespond with just the number of your choice (1-%d).",
		personaName, list.String(), len(ballot))
}

// Vote is one participant's choice
type Vote struct {
	Voter  string
	Choice string
}

// Result is the outcome of a tally
type Result struct {
	Winner string
	Count  int
	Counts map[string]int
	// Tied lists every choice that shared the top count when more than one did
	Tied []string
}

// Tally counts votes with equal weight. Abstentions are never counted. Ties go
// to the external voter's choice, then the longest text, then the
// lexicographically smallest.
func Tally(votes []Vote, external string) Result {
	res := Result{Counts: make(map[string]int)}
	for _, v := range votes {
		if IsAbstention(v.Choice) {
			continue
		}
		res.Counts[v.Choice]++
	}
	if len(res.Counts) == 0 {
		return res
	}

	for _, count := range res.Counts {
		if count > res.Count {
			res.Count = count
		}
	}

	var top []string
	for choice, count := range res.Counts {
		if count == res.Count {
			top = append(top, choice)
		}
	}
	sort.Slice(top, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(top[i]), utf8.RuneCountInString(top[j])
		if li != lj {
			return li > lj
		}
		return top[i] < top[j]
	})

	res.Winner = top[0]
	if len(top) > 1 {
		res.Tied = top
		for _, choice := range top {
			if choice == external {
				res.Winner = external
				break
			}
		}
	}
	return res
}
