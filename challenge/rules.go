package challenge

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gamerfie/game-vault/models"
)

var firstNumber = regexp.MustCompile(`\d+`)

// CheckRules reports whether stats satisfy every rule.
//
// Rules are free text matched on lower-cased keywords, not parsed. A rule may
// hit several categories and each hit adds a requirement:
//
//	"complete"/"finish" and "game"       completed games > 0
//	"achievement" / "trophy"             achievements > 0
//	"play" and "hours"                   playtime >= N
//	"reach level" / "achieve level"      level >= N
//	"score" / "points"                   score >= N
//
// N is the first integer anywhere in the rule (0 when there is none), so a rule
// that hits two numeric categories binds the same N to both. Existing rule text
// is written against this behaviour. Unknown statistics fail their requirement;
// rules without any keyword always pass.
func CheckRules(rules []string, stats models.UserStats) bool {
	for _, rule := range rules {
		if !checkRule(strings.ToLower(rule), stats) {
			return false
		}
	}
	return true
}

func checkRule(rule string, stats models.UserStats) bool {
	// "complete 1 game" must count, so the verb and "game" are matched separately
	if (strings.Contains(rule, "complete") || strings.Contains(rule, "finish")) && strings.Contains(rule, "game") {
		if stats.CompletedGames == nil || *stats.CompletedGames <= 0 {
			return false
		}
	}

	if strings.Contains(rule, "achievement") || strings.Contains(rule, "trophy") {
		if stats.Achievements == nil || *stats.Achievements <= 0 {
			return false
		}
	}

	if strings.Contains(rule, "play") && strings.Contains(rule, "hours") {
		hours := extractNumber(rule)
		if stats.Playtime == nil || *stats.Playtime < float64(hours) {
			return false
		}
	}

	if strings.Contains(rule, "reach level") || strings.Contains(rule, "achieve level") {
		level := extractNumber(rule)
		if stats.Level == nil || *stats.Level < level {
			return false
		}
	}

	if strings.Contains(rule, "score") || strings.Contains(rule, "points") {
		score := extractNumber(rule)
		if stats.Score == nil || *stats.Score < score {
			return false
		}
	}

	return true
}

// extractNumber returns the first integer literal in s, or 0
func extractNumber(s string) int {
	match := firstNumber.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		// Digit run too long for int; no statistic can reach it
		return int(^uint(0) >> 1)
	}
	return n
}
